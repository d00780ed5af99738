// Package events records each build as a JSONL event stream under the
// state directory.
package events

import (
	"time"
)

// Level represents the severity of an event.
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Event types.
const (
	TypeBuildStart = "build_start"
	TypeStepStart  = "step_start"
	TypeStepEnd    = "step_end"
	TypeBuildEnd   = "build_end"
)

// Event is one line of a build's event stream.
type Event struct {
	Seq       int       `json:"seq"`
	Timestamp time.Time `json:"ts"`
	BuildID   string    `json:"build_id"`
	Type      string    `json:"type"`
	Level     string    `json:"level"`

	Step       string `json:"step,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`

	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// EventOption is a functional option for configuring an Event.
type EventOption func(*Event)

// WithStep sets the step name.
func WithStep(step string) EventOption {
	return func(e *Event) {
		e.Step = step
	}
}

// WithDuration sets the elapsed time.
func WithDuration(d time.Duration) EventOption {
	return func(e *Event) {
		e.DurationMS = d.Milliseconds()
	}
}

// WithData sets arbitrary data for the event.
func WithData(data any) EventOption {
	return func(e *Event) {
		e.Data = data
	}
}

// WithError sets the error message for the event.
func WithError(err error) EventOption {
	return func(e *Event) {
		if err != nil {
			e.Error = err.Error()
		}
	}
}

// NewEvent creates a new Event with the given parameters and options.
func NewEvent(seq int, buildID, eventType, level string, opts ...EventOption) *Event {
	e := &Event{
		Seq:       seq,
		Timestamp: time.Now().UTC(),
		BuildID:   buildID,
		Type:      eventType,
		Level:     level,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewBuildID returns an identifier whose lexical order matches start time.
func NewBuildID() string {
	return time.Now().UTC().Format("20060102-150405.000000")
}
