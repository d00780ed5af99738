// Package doctor checks that a project is ready to build for the web.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/catdevz/boidsweb/internal/config"
	"github.com/catdevz/boidsweb/internal/events"
	"github.com/catdevz/boidsweb/internal/lock"
	"github.com/catdevz/boidsweb/internal/toolchain"
	"github.com/catdevz/boidsweb/internal/toolexec"
)

// Check statuses.
const (
	StatusOK      = "ok"
	StatusWarning = "warning"
	StatusError   = "error"
)

// CheckResult represents the result of a single check
type CheckResult struct {
	Name    string
	Status  string
	Message string
}

// Doctor performs health checks on a boidsweb project
type Doctor struct {
	Config  *config.Config
	Runner  *toolexec.Runner
	Timeout time.Duration
}

// New creates a new Doctor
func New(cfg *config.Config, runner *toolexec.Runner) *Doctor {
	if runner == nil {
		runner = toolexec.NewRunner(nil)
	}
	return &Doctor{
		Config:  cfg,
		Runner:  runner,
		Timeout: 30 * time.Second,
	}
}

// RunAll executes all health checks
func (d *Doctor) RunAll(ctx context.Context) []CheckResult {
	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	var results []CheckResult
	results = append(results, d.CheckConfig()...)
	results = append(results, d.CheckPaths()...)
	results = append(results, d.CheckTools(ctx)...)
	results = append(results, d.CheckTarget(ctx))
	results = append(results, d.CheckLockFile())
	results = append(results, d.CheckLastBuild())
	return results
}

// CheckConfig reports validation errors of the loaded configuration.
func (d *Doctor) CheckConfig() []CheckResult {
	source := d.Config.Path
	if source == "" {
		source = "defaults (" + config.DefaultPath + " not found)"
	}

	errs := d.Config.Validate()
	if len(errs) == 0 {
		return []CheckResult{{Name: "Config", Status: StatusOK, Message: source}}
	}
	var results []CheckResult
	for _, e := range errs {
		results = append(results, CheckResult{Name: "Config", Status: StatusError, Message: e.Error()})
	}
	return results
}

// CheckPaths verifies the crate, assets and entry inputs exist.
func (d *Doctor) CheckPaths() []CheckResult {
	errs := d.Config.ValidatePaths()
	if len(errs) == 0 {
		return []CheckResult{{Name: "Inputs", Status: StatusOK, Message: "crate, assets and entry found"}}
	}
	var results []CheckResult
	for _, e := range errs {
		results = append(results, CheckResult{Name: "Inputs", Status: StatusError, Message: e.Error()})
	}
	return results
}

// CheckTools looks up the external tools and their versions. rustup is
// optional since toolchains can be installed without it.
func (d *Doctor) CheckTools(ctx context.Context) []CheckResult {
	tools := []struct {
		name     string
		required bool
	}{
		{"cargo", true},
		{d.Config.Bindgen.Tool, true},
		{"rustup", false},
	}

	var results []CheckResult
	for _, tool := range tools {
		version, err := toolchain.Version(ctx, d.Runner, tool.name)
		switch {
		case err == nil:
			results = append(results, CheckResult{Name: "Tool: " + tool.name, Status: StatusOK, Message: version})
		case tool.required:
			results = append(results, CheckResult{Name: "Tool: " + tool.name, Status: StatusError, Message: "not found on PATH"})
		default:
			results = append(results, CheckResult{Name: "Tool: " + tool.name, Status: StatusWarning, Message: "not found on PATH"})
		}
	}
	return results
}

// CheckTarget verifies the compile target is installed.
func (d *Doctor) CheckTarget(ctx context.Context) CheckResult {
	target := d.Config.Crate.Target
	name := "Target: " + target

	installed, err := toolchain.InstalledTargets(ctx, d.Runner)
	if err != nil {
		return CheckResult{Name: name, Status: StatusWarning, Message: "cannot list installed targets (rustup unavailable)"}
	}
	for _, t := range installed {
		if t == target {
			return CheckResult{Name: name, Status: StatusOK, Message: "installed"}
		}
	}
	return CheckResult{
		Name:    name,
		Status:  StatusError,
		Message: fmt.Sprintf("not installed [action: rustup target add %s]", target),
	}
}

// CheckLockFile reports a build holding or having abandoned the lock.
func (d *Doctor) CheckLockFile() CheckResult {
	path := d.Config.LockPath()
	info, err := lock.ReadLockInfo(path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Name: "Lock File", Status: StatusOK, Message: "No lock file"}
		}
		return CheckResult{Name: "Lock File", Status: StatusWarning, Message: fmt.Sprintf("unreadable lock file %s (will be replaced)", path)}
	}
	if lock.ProcessAlive(info.PID) {
		return CheckResult{
			Name:    "Lock File",
			Status:  StatusWarning,
			Message: fmt.Sprintf("build in progress (PID: %d, started: %s)", info.PID, info.StartTime.Format(time.RFC3339)),
		}
	}
	return CheckResult{
		Name:    "Lock File",
		Status:  StatusWarning,
		Message: fmt.Sprintf("Stale lock file from PID %d (reclaimed by the next build)", info.PID),
	}
}

// CheckLastBuild reports the outcome of the most recent recorded build.
func (d *Doctor) CheckLastBuild() CheckResult {
	summary, err := events.LastBuild(d.Config.Resolve(d.Config.State.Dir))
	if err != nil {
		return CheckResult{Name: "Last Build", Status: StatusWarning, Message: err.Error()}
	}
	if summary == nil {
		return CheckResult{Name: "Last Build", Status: StatusOK, Message: "no builds recorded"}
	}

	switch summary.Status {
	case events.StatusSuccess:
		return CheckResult{
			Name:    "Last Build",
			Status:  StatusOK,
			Message: fmt.Sprintf("%s succeeded in %s", summary.ID, summary.Duration.Round(time.Millisecond)),
		}
	case events.StatusFailed:
		msg := fmt.Sprintf("%s failed", summary.ID)
		if summary.FailedStep != "" {
			msg += " at " + summary.FailedStep
		}
		return CheckResult{Name: "Last Build", Status: StatusWarning, Message: msg}
	default:
		return CheckResult{Name: "Last Build", Status: StatusWarning, Message: fmt.Sprintf("%s did not finish", summary.ID)}
	}
}

// HasErrors reports whether any result has error status.
func HasErrors(results []CheckResult) bool {
	for _, r := range results {
		if r.Status == StatusError {
			return true
		}
	}
	return false
}

// Render writes results as a table.
func Render(w io.Writer, results []CheckResult) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.Off},
			},
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
			},
		}),
	)
	table.Header("Check", "Status", "Message")
	for _, r := range results {
		if err := table.Append(r.Name, statusLabel(r.Status), r.Message); err != nil {
			return fmt.Errorf("failed to add row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

func statusLabel(status string) string {
	switch status {
	case StatusOK:
		return "✓ ok"
	case StatusWarning:
		return "! warning"
	default:
		return "✗ error"
	}
}
