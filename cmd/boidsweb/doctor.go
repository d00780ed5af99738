package main

import (
	"flag"
	"fmt"

	"github.com/catdevz/boidsweb/internal/doctor"
	"github.com/catdevz/boidsweb/internal/toolexec"
)

func (c *cli) usageDoctor() {
	fmt.Fprint(c.stderr, `Check that a build can run

Reports on:
- Configuration and project paths
- cargo, rustup and the bindings generator
- The installed Rust compilation target
- The build lock and the outcome of the last build

Usage:
  boidsweb doctor [options]

Options:
  --config    Config file [default: boidsweb.yaml if present]
  --verbose   Debug logging

Examples:
  boidsweb doctor
`)
}

func (c *cli) cmdDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(c.stderr)

	var flags commonFlags
	flags.register(fs)
	if code := parseFlags(fs, args, c.usageDoctor); code >= 0 {
		return code
	}

	// Validation problems are reported as checks, not as a failure to start.
	cfg, err := readConfig(flags.config)
	if err != nil {
		return c.fail(err)
	}
	logger, cleanup, err := c.newLogger(cfg, flags, false)
	if err != nil {
		return c.fail(err)
	}
	defer cleanup()

	doc := doctor.New(cfg, toolexec.NewRunner(nil, toolexec.WithLogger(logger)))
	results := doc.RunAll(c.ctx)
	if err := doctor.Render(c.stdout, results); err != nil {
		return c.fail(err)
	}

	var warnings, errs int
	for _, r := range results {
		switch r.Status {
		case doctor.StatusWarning:
			warnings++
		case doctor.StatusError:
			errs++
		}
	}
	fmt.Fprintln(c.stdout)
	if errs > 0 {
		c.out.Error(fmt.Sprintf("Found %d error(s)", errs))
	}
	if warnings > 0 {
		c.out.Warning(fmt.Sprintf("Found %d warning(s)", warnings))
	}
	if errs == 0 && warnings == 0 {
		c.out.Success("All checks passed!")
	}

	if doctor.HasErrors(results) {
		return 1
	}
	return 0
}
