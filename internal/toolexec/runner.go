// Package toolexec runs external build tools with timeouts, process-group
// cleanup and captured diagnostics.
package toolexec

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	bwerrors "github.com/catdevz/boidsweb/internal/errors"
)

// DefaultTailSize is how much trailing output is kept for error reports.
const DefaultTailSize = 8 * 1024

// errPTYUnavailable makes Run fall back to plain pipes.
var errPTYUnavailable = stderrors.New("pty unavailable")

// Command describes one external tool invocation.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Env     map[string]string
	Timeout time.Duration
}

// String returns the command line for logs and plans.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result describes a finished invocation.
type Result struct {
	ExitCode int
	Duration time.Duration
	Tail     string
	PTY      bool
}

// Runner executes commands, streaming their combined output to a writer.
type Runner struct {
	out      io.Writer
	usePTY   bool
	tailSize int
	logger   *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithPTY enables running tools under a pseudo-terminal when the output
// writer is a terminal, so compilers keep their colored diagnostics.
func WithPTY(enabled bool) Option {
	return func(r *Runner) { r.usePTY = enabled }
}

// WithLogger sets the logger used for invocation records.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTailSize sets how many trailing output bytes are captured.
func WithTailSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.tailSize = n
		}
	}
}

// NewRunner creates a Runner writing tool output to out (io.Discard if nil).
func NewRunner(out io.Writer, opts ...Option) *Runner {
	if out == nil {
		out = io.Discard
	}
	r := &Runner{
		out:      out,
		tailSize: DefaultTailSize,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes c and waits for it. Any failure to start, timeout,
// cancellation or non-zero exit is returned as *errors.BuildToolFailure.
func (r *Runner) Run(ctx context.Context, c Command) (*Result, error) {
	ctx, cancel := withTimeout(ctx, c.Timeout)
	defer cancel()

	tail := newTailBuffer(r.tailSize)
	w := io.MultiWriter(r.out, tail)

	path, err := exec.LookPath(c.Name)
	if err != nil {
		return nil, r.failure(c, -1, tail.String(), err)
	}

	r.logger.Debug("run tool", zap.String("cmd", c.String()), zap.String("dir", c.Dir))
	start := time.Now()
	env := mergeEnv(c.Env)

	usedPTY := false
	exitCode := -1
	if r.ptyEnabled() {
		exitCode, err = runPTY(ctx, path, c, env, w)
		usedPTY = err != errPTYUnavailable
		if !usedPTY {
			r.logger.Debug("pty unavailable, using pipes", zap.String("tool", c.Name))
		}
	}
	if !usedPTY {
		exitCode, err = runPipes(ctx, path, c, env, w, w)
	}
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		cause := ctxErr
		if c.Timeout > 0 && stderrors.Is(ctxErr, context.DeadlineExceeded) {
			cause = fmt.Errorf("timed out after %s", c.Timeout)
		}
		return nil, r.failure(c, -1, tail.String(), cause)
	}
	if err != nil {
		return nil, r.failure(c, -1, tail.String(), err)
	}
	if exitCode != 0 {
		return nil, r.failure(c, exitCode, tail.String(), nil)
	}

	r.logger.Info("tool finished",
		zap.String("tool", c.Name),
		zap.Duration("duration", elapsed),
		zap.Bool("pty", usedPTY))

	return &Result{
		ExitCode: exitCode,
		Duration: elapsed,
		Tail:     tail.String(),
		PTY:      usedPTY,
	}, nil
}

// Capture runs c and returns its stdout. Stderr is kept only for the
// failure report. Nothing is streamed to the runner's writer.
func (r *Runner) Capture(ctx context.Context, c Command) ([]byte, error) {
	ctx, cancel := withTimeout(ctx, c.Timeout)
	defer cancel()

	path, err := exec.LookPath(c.Name)
	if err != nil {
		return nil, r.failure(c, -1, "", err)
	}

	var stdout bytes.Buffer
	stderr := newTailBuffer(r.tailSize)
	exitCode, err := runPipes(ctx, path, c, mergeEnv(c.Env), &stdout, stderr)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, r.failure(c, -1, stderr.String(), ctxErr)
	}
	if err != nil {
		return nil, r.failure(c, -1, stderr.String(), err)
	}
	if exitCode != 0 {
		return nil, r.failure(c, exitCode, stderr.String(), nil)
	}
	return stdout.Bytes(), nil
}

func (r *Runner) failure(c Command, exitCode int, output string, cause error) error {
	r.logger.Warn("tool failed",
		zap.String("tool", c.Name),
		zap.Strings("args", c.Args),
		zap.Int("exit_code", exitCode),
		zap.Error(cause))
	return &bwerrors.BuildToolFailure{
		Tool:     c.Name,
		Args:     c.Args,
		ExitCode: exitCode,
		Output:   output,
		Cause:    cause,
	}
}

func (r *Runner) ptyEnabled() bool {
	if !r.usePTY {
		return false
	}
	f, ok := r.out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runPipes(ctx context.Context, path string, c Command, env []string, stdout, stderr io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = env
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = 2 * time.Second
	setProcGroup(cmd)

	return exitStatus(cmd.Run())
}

// exitStatus separates "ran and exited with a code" from "did not run".
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// mergeEnv returns os.Environ with extra applied in a stable order.
func mergeEnv(extra map[string]string) []string {
	env := os.Environ()
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}
