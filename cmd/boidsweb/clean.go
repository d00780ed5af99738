package main

import (
	"flag"
	"fmt"

	"github.com/catdevz/boidsweb/internal/clean"
)

func (c *cli) usageClean() {
	fmt.Fprint(c.stderr, `Remove build output and boidsweb state

Without flags, removes the output directory and a stale lock file.
A lock held by a running build is never removed.

Usage:
  boidsweb clean [options]

Options:
  --config    Config file [default: boidsweb.yaml if present]
  --dry-run   Show what would be removed without removing it
  --state     Also remove build logs and recorded build events
  --all       Same as --state

Examples:
  boidsweb clean
  boidsweb clean --all --dry-run
`)
}

func (c *cli) cmdClean(args []string) int {
	fs := flag.NewFlagSet("clean", flag.ContinueOnError)
	fs.SetOutput(c.stderr)

	var flags commonFlags
	flags.register(fs)
	dryRun := fs.Bool("dry-run", false, "")
	state := fs.Bool("state", false, "")
	all := fs.Bool("all", false, "")
	if code := parseFlags(fs, args, c.usageClean); code >= 0 {
		return code
	}

	cfg, err := loadConfig(flags.config)
	if err != nil {
		return c.fail(err)
	}

	cleaner := clean.New(cfg)
	cleaner.SetDryRun(*dryRun)
	if *dryRun {
		c.out.Info("Dry run mode - no changes will be made")
	}

	results := cleaner.CleanAll(*state || *all)
	if len(results) == 0 {
		c.out.Info("Nothing to clean.")
		return 0
	}

	var failed int
	for _, r := range results {
		line := fmt.Sprintf("%s: %s", r.Name, r.Message)
		if r.Success {
			c.out.Success(line)
		} else {
			c.out.Error(line)
			failed++
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}
