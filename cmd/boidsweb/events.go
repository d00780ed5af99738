package main

import (
	"flag"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/catdevz/boidsweb/internal/events"
)

func (c *cli) usageEvents() {
	fmt.Fprint(c.stderr, `Show recorded build events

Every build records its steps under <state.dir>/events.

Usage:
  boidsweb events [options]

Options:
  --config <file>   Config file [default: boidsweb.yaml if present]
  --build <id>      Show a specific build (default: the latest)
  --level <level>   Filter by level: info, error
  --list            List recorded builds
  --json            Output raw JSON lines

Examples:
  boidsweb events
  boidsweb events --list
  boidsweb events --level error
  boidsweb events --build 20261019-101500.123456 --json
`)
}

func (c *cli) cmdEvents(args []string) int {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	fs.SetOutput(c.stderr)

	var flags commonFlags
	flags.register(fs)
	buildID := fs.String("build", "", "")
	level := fs.String("level", "", "")
	list := fs.Bool("list", false, "")
	jsonOut := fs.Bool("json", false, "")
	if code := parseFlags(fs, args, c.usageEvents); code >= 0 {
		return code
	}

	cfg, err := loadConfig(flags.config)
	if err != nil {
		return c.fail(err)
	}
	stateDir := cfg.Resolve(cfg.State.Dir)

	ids, err := events.ListBuilds(stateDir)
	if err != nil {
		return c.fail(err)
	}
	if len(ids) == 0 {
		c.out.Info("No builds recorded")
		return 0
	}

	if *list {
		if err := c.renderBuilds(stateDir, ids); err != nil {
			return c.fail(err)
		}
		return 0
	}

	id := *buildID
	if id == "" {
		id = ids[0]
	}
	all, err := events.ReadBuild(stateDir, id)
	if err != nil {
		return c.fail(err)
	}

	for _, e := range all {
		if *level != "" && e.Level != *level {
			continue
		}
		if *jsonOut {
			data, err := json.Marshal(e)
			if err != nil {
				return c.fail(err)
			}
			fmt.Fprintln(c.stdout, string(data))
			continue
		}
		c.printEvent(e)
	}
	return 0
}

func (c *cli) printEvent(e events.Event) {
	// [SEQ] TIME TYPE STEP (DURATION) ERROR
	line := fmt.Sprintf("[%d] %s %s", e.Seq, e.Timestamp.Local().Format("15:04:05"), e.Type)
	if e.Step != "" {
		line += " " + c.out.Bold(e.Step)
	}
	if e.DurationMS > 0 {
		line += c.out.Dim(fmt.Sprintf(" (%s)", time.Duration(e.DurationMS)*time.Millisecond))
	}
	if e.Error != "" {
		c.out.Error(line + ": " + e.Error)
		return
	}
	c.out.Info(line)
}

func (c *cli) renderBuilds(stateDir string, ids []string) error {
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
	table.Header("Build", "Status", "Duration", "Failed Step")
	for _, id := range ids {
		all, err := events.ReadBuild(stateDir, id)
		if err != nil {
			return err
		}
		s := events.Summarize(id, all)
		duration := "-"
		if s.Duration > 0 {
			duration = s.Duration.Round(time.Millisecond).String()
		}
		if err := table.Append(s.ID, s.Status, duration, s.FailedStep); err != nil {
			return fmt.Errorf("failed to add row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}
