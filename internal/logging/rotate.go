package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMaxLogSize is the maximum size of a single log file (10MB)
	DefaultMaxLogSize = 10 * 1024 * 1024

	// DefaultMaxLogFiles is the maximum number of log files to keep
	DefaultMaxLogFiles = 10
)

// RotatingFile is a zapcore.WriteSyncer that starts a new file once the
// current one reaches maxSize and keeps at most maxFiles files.
type RotatingFile struct {
	mu       sync.Mutex
	dir      string
	prefix   string
	maxSize  int64
	maxFiles int
	current  *os.File
	written  int64
}

// NewRotatingFile creates the log directory and opens a fresh log file.
func NewRotatingFile(dir, prefix string) (*RotatingFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f := &RotatingFile{
		dir:      dir,
		prefix:   prefix,
		maxSize:  DefaultMaxLogSize,
		maxFiles: DefaultMaxLogFiles,
	}
	if err := f.createNewFile(); err != nil {
		return nil, err
	}
	f.cleanup()
	return f, nil
}

// Write implements io.Writer
func (f *RotatingFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current == nil {
		if err := f.createNewFile(); err != nil {
			return 0, err
		}
	}

	n, err := f.current.Write(p)
	f.written += int64(n)
	if err != nil {
		return n, err
	}

	if f.written >= f.maxSize {
		if err := f.rotate(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Sync flushes the current file.
func (f *RotatingFile) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return nil
	}
	return f.current.Sync()
}

// Rotate closes the current log file and creates a new one
func (f *RotatingFile) Rotate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rotate()
}

func (f *RotatingFile) rotate() error {
	if f.current != nil {
		if err := f.current.Close(); err != nil {
			return fmt.Errorf("failed to close current log file: %w", err)
		}
		f.current = nil
	}
	if err := f.createNewFile(); err != nil {
		return err
	}
	f.cleanup()
	return nil
}

// Close closes the current file.
func (f *RotatingFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil {
		err := f.current.Close()
		f.current = nil
		return err
	}
	return nil
}

// FilePath returns the current log file path
func (f *RotatingFile) FilePath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil {
		return f.current.Name()
	}
	return ""
}

func (f *RotatingFile) createNewFile() error {
	stamp := time.Now().Format("20060102-150405.000")
	var path string
	// The fixed-width sequence keeps lexical order equal to creation order
	// when rotations land in the same millisecond.
	for seq := 0; ; seq++ {
		path = filepath.Join(f.dir, fmt.Sprintf("%s-%s-%03d.log", f.prefix, stamp, seq))
		if !fileExists(path) {
			break
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	f.current = file
	f.written = 0
	return nil
}

// cleanup removes the oldest log files beyond maxFiles.
func (f *RotatingFile) cleanup() {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return
	}

	var logFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && filepath.Ext(name) == ".log" && strings.HasPrefix(name, f.prefix+"-") {
			logFiles = append(logFiles, name)
		}
	}
	// Names embed a sortable timestamp, so lexical order is age order.
	sort.Strings(logFiles)

	var current string
	if f.current != nil {
		current = filepath.Base(f.current.Name())
	}
	for len(logFiles) > f.maxFiles {
		if logFiles[0] != current {
			os.Remove(filepath.Join(f.dir, logFiles[0]))
		}
		logFiles = logFiles[1:]
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
