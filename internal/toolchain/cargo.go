// Package toolchain wraps the external tools a web build delegates to:
// cargo for compilation and wasm-bindgen for the JavaScript glue.
package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/catdevz/boidsweb/internal/config"
	bwerrors "github.com/catdevz/boidsweb/internal/errors"
	"github.com/catdevz/boidsweb/internal/toolexec"
)

// Cargo compiles the crate for a WebAssembly target.
type Cargo struct {
	runner   *toolexec.Runner
	crate    config.CrateConfig
	crateDir string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewCargo creates a Cargo compiler for the crate in crateDir.
func NewCargo(runner *toolexec.Runner, crate config.CrateConfig, crateDir string, timeout time.Duration, logger *zap.Logger) *Cargo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cargo{
		runner:   runner,
		crate:    crate,
		crateDir: crateDir,
		timeout:  timeout,
		logger:   logger,
	}
}

// BuildArgs returns the arguments passed to cargo.
func (c *Cargo) BuildArgs() []string {
	args := []string{"build", "--target", c.crate.Target}
	if c.crate.Release {
		args = append(args, "--release")
	}
	if len(c.crate.Features) > 0 {
		args = append(args, "--features", strings.Join(c.crate.Features, ","))
	}
	return args
}

// Describe returns the command line for build plans.
func (c *Cargo) Describe() string {
	return "cargo " + strings.Join(c.BuildArgs(), " ")
}

// Compile runs cargo build and returns the path of the produced module.
func (c *Cargo) Compile(ctx context.Context) (string, error) {
	if _, err := c.runner.Run(ctx, toolexec.Command{
		Name:    "cargo",
		Args:    c.BuildArgs(),
		Dir:     c.crateDir,
		Timeout: c.timeout,
	}); err != nil {
		return "", err
	}

	artifact := filepath.Join(c.TargetDir(ctx), c.crate.Target, c.crate.Profile(), c.crate.ArtifactName())
	if _, err := os.Stat(artifact); err != nil {
		return "", &bwerrors.BuildToolFailure{
			Tool:     "cargo",
			Args:     c.BuildArgs(),
			ExitCode: -1,
			Cause:    fmt.Errorf("expected artifact %s was not produced: %w", artifact, err),
		}
	}

	c.logger.Info("compiled artifact", zap.String("artifact", artifact))
	return artifact, nil
}

type cargoMetadata struct {
	TargetDirectory string `json:"target_directory"`
}

// TargetDir asks cargo where build output goes. When metadata is not
// available it honors CARGO_TARGET_DIR and finally <crate>/target.
func (c *Cargo) TargetDir(ctx context.Context) string {
	out, err := c.runner.Capture(ctx, toolexec.Command{
		Name:    "cargo",
		Args:    []string{"metadata", "--format-version", "1", "--no-deps"},
		Dir:     c.crateDir,
		Timeout: time.Minute,
	})
	if err == nil {
		var meta cargoMetadata
		if jsonErr := json.Unmarshal(out, &meta); jsonErr == nil && meta.TargetDirectory != "" {
			return meta.TargetDirectory
		}
		c.logger.Debug("cargo metadata missing target_directory")
	} else {
		c.logger.Debug("cargo metadata failed", zap.Error(err))
	}

	if dir := os.Getenv("CARGO_TARGET_DIR"); dir != "" {
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(c.crateDir, dir)
	}
	return filepath.Join(c.crateDir, "target")
}
