package main

import (
	stderrors "errors"
	"flag"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/catdevz/boidsweb/internal/config"
	bwerrors "github.com/catdevz/boidsweb/internal/errors"
	"github.com/catdevz/boidsweb/internal/logging"
	"github.com/catdevz/boidsweb/internal/pipeline"
	"github.com/catdevz/boidsweb/internal/stage"
	"github.com/catdevz/boidsweb/internal/toolchain"
	"github.com/catdevz/boidsweb/internal/toolexec"
	"github.com/catdevz/boidsweb/internal/wasmcheck"
)

// commonFlags are accepted by every command that reads the config.
type commonFlags struct {
	config  string
	verbose bool
	quiet   bool
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.config, "config", "", "")
	fs.BoolVar(&f.verbose, "verbose", false, "")
	fs.BoolVar(&f.quiet, "quiet", false, "")
}

// readConfig reads --config, or boidsweb.yaml when present.
func readConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadConfig(path)
	} else {
		cfg, err = config.LoadOrDefault(config.DefaultPath)
	}
	if err != nil {
		return nil, bwerrors.NewConfigErrorWithCause("cannot load configuration", err)
	}
	return cfg, nil
}

// loadConfig is readConfig followed by validation.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := readConfig(path)
	if err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, bwerrors.NewValidationError("invalid configuration:\n  " + strings.Join(msgs, "\n  "))
	}
	return cfg, nil
}

// newLogger builds the command logger. Commands that write build state
// also log to rotating files under the state directory.
func (c *cli) newLogger(cfg *config.Config, flags commonFlags, persist bool) (*zap.Logger, func(), error) {
	opts := logging.Options{
		Level:   logging.LevelFromFlags(flags.verbose, flags.quiet),
		Console: c.stderr,
	}
	if persist {
		opts.LogDir = cfg.LogDir()
	}
	logger, cleanup, err := logging.New(opts)
	if err != nil {
		return nil, nil, bwerrors.NewGeneralErrorWithCause("cannot set up logging", err)
	}
	return logger, cleanup, nil
}

// newOrchestrator wires the toolchain, stager and verifier for cfg.
func newOrchestrator(cfg *config.Config, toolOut io.Writer, logger *zap.Logger, opts ...pipeline.Option) *pipeline.Orchestrator {
	runner := toolexec.NewRunner(toolOut,
		toolexec.WithPTY(cfg.Build.PTY),
		toolexec.WithLogger(logger))
	toolTimeout := cfg.Build.ToolTimeoutDuration()

	compiler := toolchain.NewCargo(runner, cfg.Crate, cfg.Resolve(cfg.Crate.Dir), toolTimeout, logger)
	bindgen := toolchain.NewWasmBindgen(runner, cfg.Bindgen, toolTimeout, logger)

	layout := pipeline.Layout{
		OutDir:     cfg.Resolve(cfg.Web.OutDir),
		AssetsDir:  cfg.Resolve(cfg.Web.AssetsDir),
		AssetsDest: cfg.AssetsDest(),
		Entry:      cfg.Resolve(cfg.Web.Entry),
	}

	all := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithTimeout(cfg.Build.BuildTimeout()),
		pipeline.WithParallelStaging(cfg.Build.ParallelStaging),
	}
	if cfg.Build.VerifyArtifact {
		all = append(all, pipeline.WithVerifier(wasmcheck.NewChecker(logger)))
	}
	all = append(all, opts...)

	return pipeline.New(compiler, bindgen, stage.NewLocal(logger), layout, all...)
}

// fail prints err and returns its exit code. A failed tool also gets its
// command line printed.
func (c *cli) fail(err error) int {
	c.errOut.Error(err.Error())
	var toolErr *bwerrors.BuildToolFailure
	if stderrors.As(err, &toolErr) {
		c.errOut.Detail("command: " + toolErr.CommandLine())
	}
	return bwerrors.GetExitCode(err)
}

// parseFlags parses args, printing usage for -h/--help. It returns the
// exit code to stop with, or -1 to continue.
func parseFlags(fs *flag.FlagSet, args []string, usage func()) int {
	fs.Usage = usage
	showHelp := fs.Bool("help", false, "")
	showHelpShort := fs.Bool("h", false, "")
	if err := fs.Parse(args); err != nil {
		return bwerrors.ExitConfigError
	}
	if *showHelp || *showHelpShort {
		usage()
		return 0
	}
	return -1
}
