//go:build !windows

package toolexec

import (
	"os/exec"
	"syscall"
)

// setProcGroup puts the tool in its own process group so the whole child
// tree (cargo spawns rustc, build scripts, linkers) dies on cancellation.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		return nil
	}
}
