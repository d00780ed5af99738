//go:build !windows

package toolexec

import (
	"context"
	"io"
	"os/exec"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// runPTY runs the tool attached to a pseudo-terminal. pty.Start makes the
// child a session leader, so its pid doubles as the process group id.
func runPTY(ctx context.Context, path string, c Command, env []string, w io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = env
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		return nil
	}

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return -1, errPTYUnavailable
	}
	defer ptmx.Close()

	done := make(chan struct{})
	go func() {
		// Read ends with EIO once every holder of the tty side has exited.
		_, _ = io.Copy(w, ptmx)
		close(done)
	}()

	waitErr := cmd.Wait()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
	return exitStatus(waitErr)
}
