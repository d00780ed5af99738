package main

import (
	"flag"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	bwerrors "github.com/catdevz/boidsweb/internal/errors"
	"github.com/catdevz/boidsweb/internal/wasmcheck"
)

func (c *cli) usageInspect() {
	fmt.Fprint(c.stderr, `Show the exports and imports of a WebAssembly file

The module is compiled but never run.

Usage:
  boidsweb inspect <file.wasm> [options]

Options:
  --json   Print the report as JSON

Examples:
  boidsweb inspect target/wasm32-unknown-unknown/release/boids.wasm
  boidsweb inspect web/dist/boids_bg.wasm --json
`)
}

func (c *cli) cmdInspect(args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	jsonOut := fs.Bool("json", false, "")
	if code := parseFlags(fs, args, c.usageInspect); code >= 0 {
		return code
	}

	// Flags may also follow the file name.
	if fs.NArg() == 0 {
		c.usageInspect()
		return bwerrors.ExitConfigError
	}
	path := fs.Arg(0)
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return bwerrors.ExitConfigError
	}
	if fs.NArg() > 0 {
		c.usageInspect()
		return bwerrors.ExitConfigError
	}

	report, err := wasmcheck.Inspect(c.ctx, path)
	if err != nil {
		return c.fail(err)
	}

	if *jsonOut {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return c.fail(err)
		}
		fmt.Fprintln(c.stdout, string(data))
		return 0
	}

	c.out.Info(fmt.Sprintf("%s (%d bytes)", c.out.Path(report.Path), report.Size))
	if len(report.ImportedModules) > 0 {
		c.out.Detail("imports from: " + strings.Join(report.ImportedModules, ", "))
	}
	if len(report.ExportedMemory) > 0 {
		c.out.Detail("memory: " + strings.Join(report.ExportedMemory, ", "))
	}
	if err := c.renderFunctions(report); err != nil {
		return c.fail(err)
	}
	return 0
}

func (c *cli) renderFunctions(report *wasmcheck.Report) error {
	table := tablewriter.NewTable(c.stdout,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.Off},
			},
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
			},
		}),
	)
	table.Header("Kind", "Function")
	for _, f := range report.Exports {
		if err := table.Append("export", f.Signature()); err != nil {
			return fmt.Errorf("failed to add row: %w", err)
		}
	}
	for _, f := range report.Imports {
		if err := table.Append("import", f.Signature()); err != nil {
			return fmt.Errorf("failed to add row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}
