package events

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Build statuses reported by Summarize.
const (
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusIncomplete = "incomplete"
)

// BuildSummary condenses one build's event stream.
type BuildSummary struct {
	ID         string
	Started    time.Time
	Finished   time.Time
	Status     string
	FailedStep string
	Error      string
	Duration   time.Duration
}

// ListBuilds returns recorded build IDs, newest first.
func ListBuilds(stateDir string) ([]string, error) {
	entries, err := os.ReadDir(Dir(stateDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read events directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".jsonl") {
			ids = append(ids, strings.TrimSuffix(entry.Name(), ".jsonl"))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// ReadBuild reads all events of one build. Lines that fail to parse are
// skipped so a truncated final line does not hide the rest.
func ReadBuild(stateDir, buildID string) ([]Event, error) {
	path := filepath.Join(Dir(stateDir), buildID+".jsonl")
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("build not found: %s", buildID)
		}
		return nil, fmt.Errorf("failed to open event file: %w", err)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading event file: %w", err)
	}
	return events, nil
}

// Summarize folds a build's events into a summary.
func Summarize(buildID string, events []Event) *BuildSummary {
	s := &BuildSummary{ID: buildID, Status: StatusIncomplete}
	for _, e := range events {
		switch e.Type {
		case TypeBuildStart:
			s.Started = e.Timestamp
		case TypeStepEnd:
			if e.Error != "" && s.FailedStep == "" {
				s.FailedStep = e.Step
			}
		case TypeBuildEnd:
			s.Finished = e.Timestamp
			s.Error = e.Error
			if e.Error != "" {
				s.Status = StatusFailed
			} else {
				s.Status = StatusSuccess
			}
		}
	}
	if !s.Started.IsZero() && !s.Finished.IsZero() {
		s.Duration = s.Finished.Sub(s.Started)
	}
	return s
}

// LastBuild summarizes the newest recorded build, or returns nil when no
// build has been recorded.
func LastBuild(stateDir string) (*BuildSummary, error) {
	ids, err := ListBuilds(stateDir)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	events, err := ReadBuild(stateDir, ids[0])
	if err != nil {
		return nil, err
	}
	return Summarize(ids[0], events), nil
}

// Prune removes all but the newest keep event streams.
func Prune(stateDir string, keep int) error {
	ids, err := ListBuilds(stateDir)
	if err != nil {
		return err
	}
	if keep < 0 {
		keep = 0
	}
	for i := keep; i < len(ids); i++ {
		path := filepath.Join(Dir(stateDir), ids[i]+".jsonl")
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}
