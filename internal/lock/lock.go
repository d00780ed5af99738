// Package lock keeps two builds from writing the same output directory at
// once.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
)

// LockInfo contains information about the lock holder
type LockInfo struct {
	PID       int       `json:"pid"`
	StartTime time.Time `json:"start_time"`
	Hostname  string    `json:"hostname"`
	OutDir    string    `json:"out_dir"`
}

// HeldError is returned when a live process holds the lock.
type HeldError struct {
	Path string
	Info LockInfo
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("another build is running (PID: %d, started: %s, out_dir: %s); lock file %s",
		e.Info.PID, e.Info.StartTime.Format(time.RFC3339), e.Info.OutDir, e.Path)
}

// LockManager handles single-writer protection via a lock file
type LockManager struct {
	lockFile string
	outDir   string
	acquired bool
}

// ProcessAlive reports whether a process with the given PID is still running.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return processAlive(pid)
}

// NewLockManager creates a LockManager for lockFile guarding outDir.
func NewLockManager(lockFile, outDir string) *LockManager {
	return &LockManager{lockFile: lockFile, outDir: outDir}
}

// Path returns the lock file path.
func (l *LockManager) Path() string {
	return l.lockFile
}

// Acquire publishes the lock file. A lock left by a dead process is
// reclaimed once.
func (l *LockManager) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.lockFile), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	err := l.create()
	if err == nil || !os.IsExist(err) {
		return err
	}

	info, readErr := ReadLockInfo(l.lockFile)
	if readErr == nil && ProcessAlive(info.PID) {
		return &HeldError{Path: l.lockFile, Info: *info}
	}

	// Unreadable or stale: remove and retry once to avoid looping against
	// a concurrent writer.
	os.Remove(l.lockFile)
	err = l.create()
	if err != nil && os.IsExist(err) {
		if info, readErr := ReadLockInfo(l.lockFile); readErr == nil && ProcessAlive(info.PID) {
			return &HeldError{Path: l.lockFile, Info: *info}
		}
		return fmt.Errorf("lock file %s exists and could not be acquired", l.lockFile)
	}
	return err
}

// create writes the lock info to a temporary file and hard-links it into
// place, so the lock file is never observed empty or half written. The
// link fails with an IsExist error when the lock is already held.
func (l *LockManager) create() error {
	f, err := os.CreateTemp(filepath.Dir(l.lockFile), filepath.Base(l.lockFile)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := l.writeLockInfoTo(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close lock file: %w", err)
	}

	if err := os.Link(tmp, l.lockFile); err != nil {
		if os.IsExist(err) {
			return err
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	l.acquired = true
	return nil
}

// Release removes the lock file
func (l *LockManager) Release() error {
	if !l.acquired {
		return nil
	}
	if err := os.Remove(l.lockFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	l.acquired = false
	return nil
}

// ReadLockInfo reads the lock file at path.
func ReadLockInfo(path string) (*LockInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (l *LockManager) writeLockInfoTo(f *os.File) error {
	hostname, _ := os.Hostname()
	info := LockInfo{
		PID:       os.Getpid(),
		StartTime: time.Now(),
		Hostname:  hostname,
		OutDir:    l.outDir,
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lock info: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write lock info: %w", err)
	}
	return nil
}
