package main

import (
	"flag"
	"fmt"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/catdevz/boidsweb/internal/config"
	"github.com/catdevz/boidsweb/internal/events"
	"github.com/catdevz/boidsweb/internal/lock"
	"github.com/catdevz/boidsweb/internal/output"
	"github.com/catdevz/boidsweb/internal/pipeline"
)

// keepBuilds is how many event streams survive after each build.
const keepBuilds = 50

func (c *cli) usageBuild() {
	fmt.Fprint(c.stderr, `Compile the crate, stage the output directory and generate bindings

Usage:
  boidsweb build [options]

Options:
  --config     Config file [default: boidsweb.yaml if present]
  --dry-run    Print the planned steps without running them
  --parallel   Stage the output directory while compiling
  --no-verify  Skip the compiled artifact check
  --json       Print the build result as JSON
  --verbose    Debug logging
  --quiet      Only warnings and errors

Steps:
  compile -> reset -> copy-assets -> copy-entry -> verify -> bindgen

Examples:
  boidsweb build
  boidsweb build --dry-run
  boidsweb build --config web.yaml --parallel
`)
}

func (c *cli) cmdBuild(args []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(c.stderr)

	var flags commonFlags
	flags.register(fs)
	dryRun := fs.Bool("dry-run", false, "")
	parallel := fs.Bool("parallel", false, "")
	noVerify := fs.Bool("no-verify", false, "")
	jsonOut := fs.Bool("json", false, "")
	if code := parseFlags(fs, args, c.usageBuild); code >= 0 {
		return code
	}

	cfg, err := loadConfig(flags.config)
	if err != nil {
		return c.fail(err)
	}
	if *parallel {
		cfg.Build.ParallelStaging = true
	}
	if *noVerify {
		cfg.Build.VerifyArtifact = false
	}

	if *dryRun {
		return c.printPlan(cfg)
	}

	logger, cleanup, err := c.newLogger(cfg, flags, true)
	if err != nil {
		return c.fail(err)
	}
	defer cleanup()

	result, err := c.build(cfg, flags, logger)
	if err != nil {
		return c.fail(err)
	}
	if *jsonOut {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return c.fail(err)
		}
		fmt.Fprintln(c.stdout, string(data))
	}
	return 0
}

// build runs the pipeline under the output directory lock and records the
// event stream.
func (c *cli) build(cfg *config.Config, flags commonFlags, logger *zap.Logger) (*pipeline.Result, error) {
	outDir := cfg.Resolve(cfg.Web.OutDir)
	guard := lock.NewLockManager(cfg.LockPath(), outDir)
	if err := guard.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if err := guard.Release(); err != nil {
			logger.Warn("failed to release lock", zap.Error(err))
		}
	}()

	var opts []pipeline.Option
	if !flags.quiet {
		opts = append(opts, pipeline.WithObserver(output.NewProgress(c.out)))
	}

	stateDir := cfg.Resolve(cfg.State.Dir)
	recorder, err := events.NewEventWriter(stateDir, events.NewBuildID(), logger)
	if err != nil {
		logger.Warn("build events disabled", zap.Error(err))
	} else {
		defer func() {
			recorder.Close()
			if err := events.Prune(stateDir, keepBuilds); err != nil {
				logger.Debug("failed to prune build events", zap.Error(err))
			}
		}()
		opts = append(opts, pipeline.WithObserver(recorder))
		logger.Debug("recording build events", zap.String("build_id", recorder.BuildID()), zap.String("path", recorder.FilePath()))
	}

	return newOrchestrator(cfg, c.stderr, logger, opts...).Run(c.ctx)
}

func (c *cli) printPlan(cfg *config.Config) int {
	o := newOrchestrator(cfg, c.stderr, zap.NewNop())
	c.out.Info(c.out.Bold("Build plan (dry run)"))
	for i, step := range o.Plan() {
		c.out.Info(fmt.Sprintf("%d. %-12s %s", i+1, step.Name, step.Description))
	}
	return 0
}
