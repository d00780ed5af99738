//go:build windows

package toolexec

import (
	"context"
	"io"
	"strings"
	"syscall"

	"github.com/UserExistsError/conpty"
)

// runPTY runs the tool under ConPTY when the host supports it.
func runPTY(ctx context.Context, path string, c Command, env []string, w io.Writer) (int, error) {
	if !conpty.IsConPtyAvailable() {
		return -1, errPTYUnavailable
	}

	args := append([]string{path}, c.Args...)
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = syscall.EscapeArg(a)
	}

	opts := []conpty.ConPtyOption{conpty.ConPtyEnv(env)}
	if c.Dir != "" {
		opts = append(opts, conpty.ConPtyWorkDir(c.Dir))
	}

	cpty, err := conpty.Start(strings.Join(quoted, " "), opts...)
	if err != nil {
		return -1, errPTYUnavailable
	}
	defer cpty.Close()

	go func() {
		_, _ = io.Copy(w, cpty)
	}()

	code, err := cpty.Wait(ctx)
	if err != nil {
		return -1, err
	}
	return int(code), nil
}
