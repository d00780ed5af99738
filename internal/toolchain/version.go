package toolchain

import (
	"context"
	"strings"
	"time"

	"github.com/catdevz/boidsweb/internal/toolexec"
)

const versionTimeout = 30 * time.Second

// Version returns the first line tool prints for --version.
func Version(ctx context.Context, runner *toolexec.Runner, tool string) (string, error) {
	out, err := runner.Capture(ctx, toolexec.Command{
		Name:    tool,
		Args:    []string{"--version"},
		Timeout: versionTimeout,
	})
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", nil
}

// InstalledTargets lists the rustup targets installed for the active toolchain.
func InstalledTargets(ctx context.Context, runner *toolexec.Runner) ([]string, error) {
	out, err := runner.Capture(ctx, toolexec.Command{
		Name:    "rustup",
		Args:    []string{"target", "list", "--installed"},
		Timeout: versionTimeout,
	})
	if err != nil {
		return nil, err
	}
	var targets []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			targets = append(targets, line)
		}
	}
	return targets, nil
}
