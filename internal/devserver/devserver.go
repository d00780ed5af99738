// Package devserver serves a staged output directory over HTTP for local
// testing in a browser.
package devserver

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	bwerrors "github.com/catdevz/boidsweb/internal/errors"
)

const (
	defaultShutdownTimeout = 5 * time.Second
	wasmContentType        = "application/wasm"
)

// Server serves one directory with file handle caching disabled, so a
// rebuild shows up without a restart.
type Server struct {
	app    *fiber.App
	dir    string
	addr   string
	logger *zap.Logger
}

// New creates a Server for dir listening on addr.
func New(dir, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{dir: dir, addr: addr, logger: logger}

	app := fiber.New(fiber.Config{
		AppName:               "boidsweb",
		DisableStartupMessage: true,
	})
	app.Use(s.withLog)
	app.Static("/", dir, fiber.Static{
		Index:          "index.html",
		CacheDuration:  -1,
		ModifyResponse: setHeaders,
	})
	app.Use(func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})
	s.app = app
	return s
}

// App exposes the fiber application for in-process requests.
func (s *Server) App() *fiber.App {
	return s.app
}

func setHeaders(c *fiber.Ctx) error {
	if strings.HasSuffix(c.Path(), ".wasm") {
		c.Set(fiber.HeaderContentType, wasmContentType)
	}
	c.Set(fiber.HeaderCacheControl, "no-cache")
	return nil
}

func (s *Server) withLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if e, ok := err.(*fiber.Error); ok {
		status = e.Code
	}
	s.logger.Debug("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)))
	return err
}

// ListenAndServe listens on the configured address and serves until ctx
// is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	st, err := os.Stat(s.dir)
	if err != nil {
		return bwerrors.NewFilesystemError("serve", s.dir, err)
	}
	if !st.IsDir() {
		return bwerrors.NewFilesystemError("serve", s.dir, fmt.Errorf("not a directory"))
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return bwerrors.NewGeneralErrorWithCause("failed to listen on "+s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("serving", zap.String("dir", s.dir), zap.String("url", "http://"+ln.Addr().String()+"/"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listener(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	s.logger.Info("server stopped")
	return nil
}
