package toolchain

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/catdevz/boidsweb/internal/config"
	"github.com/catdevz/boidsweb/internal/toolexec"
)

// WasmBindgen generates the JavaScript binding layer for a compiled module.
type WasmBindgen struct {
	runner  *toolexec.Runner
	cfg     config.BindgenConfig
	timeout time.Duration
	logger  *zap.Logger
}

// NewWasmBindgen creates a bindings generator from cfg.
func NewWasmBindgen(runner *toolexec.Runner, cfg config.BindgenConfig, timeout time.Duration, logger *zap.Logger) *WasmBindgen {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WasmBindgen{runner: runner, cfg: cfg, timeout: timeout, logger: logger}
}

// Args returns the arguments for generating bindings of artifact into outDir.
func (b *WasmBindgen) Args(artifact, outDir string) []string {
	args := []string{"--out-dir", outDir, "--target", b.cfg.Target}
	if b.cfg.OutName != "" {
		args = append(args, "--out-name", b.cfg.OutName)
	}
	if !b.cfg.TypeScript {
		args = append(args, "--no-typescript")
	}
	return append(args, artifact)
}

// Describe returns the command line for build plans.
func (b *WasmBindgen) Describe() string {
	return b.cfg.Tool + " " + strings.Join(b.Args("<artifact>", "<out_dir>"), " ")
}

// Generate runs the bindings generator.
func (b *WasmBindgen) Generate(ctx context.Context, artifact, outDir string) error {
	_, err := b.runner.Run(ctx, toolexec.Command{
		Name:    b.cfg.Tool,
		Args:    b.Args(artifact, outDir),
		Timeout: b.timeout,
	})
	if err != nil {
		return err
	}
	b.logger.Info("generated bindings", zap.String("out_dir", outDir), zap.String("target", b.cfg.Target))
	return nil
}
