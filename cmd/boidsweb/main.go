package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/catdevz/boidsweb/internal/buildinfo"
	"github.com/catdevz/boidsweb/internal/output"
)

// cli carries the process streams so commands can be run in tests.
type cli struct {
	ctx    context.Context
	stdout io.Writer
	stderr io.Writer
	out    *output.OutputFormatter
	errOut *output.OutputFormatter
}

func newCLI(ctx context.Context, stdout, stderr io.Writer) *cli {
	return &cli{
		ctx:    ctx,
		stdout: stdout,
		stderr: stderr,
		out:    output.NewOutputFormatter(stdout),
		errOut: output.NewOutputFormatter(stderr),
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := newCLI(ctx, stdout, stderr)

	// Running with no arguments builds, like the script this replaces.
	if len(args) == 0 {
		return c.cmdBuild(nil)
	}

	switch args[0] {
	case "--version", "-v", "version":
		fmt.Fprintln(stdout, buildinfo.Version)
		return 0
	case "--help", "-h":
		c.usage()
		return 0
	case "build":
		return c.cmdBuild(args[1:])
	case "clean":
		return c.cmdClean(args[1:])
	case "doctor":
		return c.cmdDoctor(args[1:])
	case "inspect":
		return c.cmdInspect(args[1:])
	case "events":
		return c.cmdEvents(args[1:])
	case "serve":
		return c.cmdServe(args[1:])
	case "completion":
		return c.cmdCompletion(args[1:])
	case "help":
		if len(args) >= 2 {
			return c.cmdHelp(args[1])
		}
		c.usage()
		return 0
	default:
		// Flags without a command apply to build.
		if len(args[0]) > 0 && args[0][0] == '-' {
			return c.cmdBuild(args)
		}
		c.errOut.Error(fmt.Sprintf("Unknown command: %s", args[0]))
		c.usage()
		return 2
	}
}

func (c *cli) usage() {
	fmt.Fprint(c.stderr, `boidsweb - build the boids WebAssembly app for the web

Usage:
  boidsweb [command] [options]

Commands:
  build       Compile, stage web/dist and generate bindings (default)
  clean       Remove build output and, optionally, boidsweb state
  doctor      Check tools, target and project layout
  inspect     Show exports and imports of a .wasm file
  events      Show recorded build events
  serve       Serve the output directory over HTTP
  completion  Generate shell completion script
  version     Show version
  help        Show help for a command

Examples:
  boidsweb
  boidsweb build --dry-run
  boidsweb serve --build
  boidsweb inspect web/dist/boids_bg.wasm

Run 'boidsweb help <command>' for more information.
`)
}

func (c *cli) cmdHelp(command string) int {
	switch command {
	case "build":
		c.usageBuild()
	case "clean":
		c.usageClean()
	case "doctor":
		c.usageDoctor()
	case "inspect":
		c.usageInspect()
	case "events":
		c.usageEvents()
	case "serve":
		c.usageServe()
	case "completion":
		c.usageCompletion()
	case "version":
		fmt.Fprintln(c.stdout, "Show the boidsweb version.")
	default:
		c.errOut.Error(fmt.Sprintf("Unknown command: %s", command))
		return 2
	}
	return 0
}
