package events

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/catdevz/boidsweb/internal/pipeline"
)

// Dir returns the events directory inside stateDir.
func Dir(stateDir string) string {
	return filepath.Join(stateDir, "events")
}

// EventWriter appends events to <state>/events/<build-id>.jsonl. It also
// implements pipeline.Observer so a build can stream into it directly.
type EventWriter struct {
	buildID string
	file    *os.File
	seq     int
	mu      sync.Mutex
	logger  *zap.Logger
}

// NewEventWriter creates the events directory and opens the stream for buildID.
func NewEventWriter(stateDir, buildID string, logger *zap.Logger) (*EventWriter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := Dir(stateDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create events directory: %w", err)
	}

	path := filepath.Join(dir, buildID+".jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event file: %w", err)
	}

	return &EventWriter{buildID: buildID, file: file, logger: logger}, nil
}

// Write appends one event.
func (w *EventWriter) Write(eventType, level string, opts ...EventOption) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("event writer closed")
	}
	w.seq++
	data, err := json.Marshal(NewEvent(w.seq, w.buildID, eventType, level, opts...))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := w.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return w.file.Sync()
}

// Close closes the event writer.
func (w *EventWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// BuildID returns the build identifier.
func (w *EventWriter) BuildID() string {
	return w.buildID
}

// FilePath returns the path to the event file.
func (w *EventWriter) FilePath() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		return w.file.Name()
	}
	return ""
}

func (w *EventWriter) emit(eventType, level string, opts ...EventOption) {
	if err := w.Write(eventType, level, opts...); err != nil {
		w.logger.Warn("failed to record build event", zap.String("type", eventType), zap.Error(err))
	}
}

// BuildStarted implements pipeline.Observer.
func (w *EventWriter) BuildStarted(steps []pipeline.Step) {
	w.emit(TypeBuildStart, LevelInfo, WithData(map[string]any{"steps": steps}))
}

// StepStarted implements pipeline.Observer.
func (w *EventWriter) StepStarted(step pipeline.Step) {
	w.emit(TypeStepStart, LevelInfo, WithStep(string(step.Name)), WithData(map[string]any{"description": step.Description}))
}

// StepFinished implements pipeline.Observer.
func (w *EventWriter) StepFinished(step pipeline.Step, elapsed time.Duration, err error) {
	level := LevelInfo
	if err != nil {
		level = LevelError
	}
	w.emit(TypeStepEnd, level, WithStep(string(step.Name)), WithDuration(elapsed), WithError(err))
}

// BuildFinished implements pipeline.Observer.
func (w *EventWriter) BuildFinished(result *pipeline.Result, err error) {
	if err != nil {
		w.emit(TypeBuildEnd, LevelError, WithError(err))
		return
	}
	w.emit(TypeBuildEnd, LevelInfo,
		WithDuration(result.Duration),
		WithData(map[string]any{
			"artifact": result.Artifact,
			"out_dir":  result.OutDir,
			"files":    result.Files,
		}))
}
