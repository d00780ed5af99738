package main

import (
	"flag"
	"fmt"

	"github.com/catdevz/boidsweb/internal/devserver"
)

func (c *cli) usageServe() {
	fmt.Fprint(c.stderr, `Serve the output directory over HTTP

.wasm files are served as application/wasm and nothing is cached,
so reloading the page picks up a new build. Stop with Ctrl-C.

Usage:
  boidsweb serve [options]

Options:
  --config    Config file [default: boidsweb.yaml if present]
  --addr      Listen address [default: serve.addr, 127.0.0.1:8080]
  --dir       Directory to serve [default: web.out_dir]
  --build     Run a build before serving
  --verbose   Log every request
  --quiet     Only warnings and errors

Examples:
  boidsweb serve
  boidsweb serve --build --addr :9000
`)
}

func (c *cli) cmdServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(c.stderr)

	var flags commonFlags
	flags.register(fs)
	addr := fs.String("addr", "", "")
	dir := fs.String("dir", "", "")
	build := fs.Bool("build", false, "")
	if code := parseFlags(fs, args, c.usageServe); code >= 0 {
		return code
	}

	cfg, err := loadConfig(flags.config)
	if err != nil {
		return c.fail(err)
	}
	if *addr == "" {
		*addr = cfg.Serve.Addr
	}
	root := cfg.Resolve(cfg.Web.OutDir)
	if *dir != "" {
		root = *dir
	}

	logger, cleanup, err := c.newLogger(cfg, flags, *build)
	if err != nil {
		return c.fail(err)
	}
	defer cleanup()

	if *build {
		if _, err := c.build(cfg, flags, logger); err != nil {
			return c.fail(err)
		}
	}

	c.out.Info(fmt.Sprintf("Serving %s at %s", c.out.Path(root), c.out.Bold("http://"+*addr+"/")))
	if err := devserver.New(root, *addr, logger).ListenAndServe(c.ctx); err != nil {
		return c.fail(err)
	}
	return 0
}
