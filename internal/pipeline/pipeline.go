// Package pipeline sequences a web build: compile the crate, stage the
// output directory, and generate the JavaScript bindings.
//
// The compiler, bindings generator and filesystem stager are collaborators
// behind small interfaces so tests can substitute recording fakes.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Compiler produces the WebAssembly artifact and returns its path.
type Compiler interface {
	Compile(ctx context.Context) (string, error)
}

// BindingsGenerator turns a compiled artifact into loadable web output.
type BindingsGenerator interface {
	Generate(ctx context.Context, artifact, outDir string) error
}

// Stager prepares the output directory.
type Stager interface {
	Reset(dir string) error
	CopyTree(src, dst string) error
	CopyFile(src, dstDir string) error
	List(dir string) ([]string, error)
}

// Verifier checks the compiled artifact before bindings are generated.
type Verifier interface {
	Verify(ctx context.Context, path string) error
}

// Describer is implemented by collaborators that can print their command
// line for a dry run.
type Describer interface {
	Describe() string
}

// StepName identifies a pipeline step.
type StepName string

const (
	StepCompile    StepName = "compile"
	StepReset      StepName = "reset"
	StepCopyAssets StepName = "copy-assets"
	StepCopyEntry  StepName = "copy-entry"
	StepVerify     StepName = "verify"
	StepBindgen    StepName = "bindgen"
)

// Step is one planned unit of work.
type Step struct {
	Name        StepName `json:"name"`
	Description string   `json:"description"`
}

// StepTiming records how long a finished step took.
type StepTiming struct {
	Name     StepName      `json:"name"`
	Duration time.Duration `json:"duration"`
}

// Layout holds the resolved paths a build reads and writes.
type Layout struct {
	OutDir     string
	AssetsDir  string
	AssetsDest string
	Entry      string
}

// Result describes a successful build.
type Result struct {
	Artifact string        `json:"artifact"`
	OutDir   string        `json:"out_dir"`
	Steps    []StepTiming  `json:"steps"`
	Files    []string      `json:"files"`
	Duration time.Duration `json:"duration"`

	mu sync.Mutex
}

func (r *Result) record(name StepName, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Steps = append(r.Steps, StepTiming{Name: name, Duration: d})
}

// Observer receives build progress. With parallel staging enabled, step
// callbacks arrive from more than one goroutine.
type Observer interface {
	BuildStarted(steps []Step)
	StepStarted(step Step)
	StepFinished(step Step, elapsed time.Duration, err error)
	BuildFinished(result *Result, err error)
}

// Orchestrator runs the build steps in order and stops at the first failure.
type Orchestrator struct {
	compiler  Compiler
	bindgen   BindingsGenerator
	stager    Stager
	verifier  Verifier
	layout    Layout
	parallel  bool
	timeout   time.Duration
	observers []Observer
	logger    *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithVerifier adds a verify step between staging and bindings generation.
func WithVerifier(v Verifier) Option {
	return func(o *Orchestrator) { o.verifier = v }
}

// WithParallelStaging runs staging concurrently with compilation. A failed
// compile may then leave a freshly staged output directory behind.
func WithParallelStaging(enabled bool) Option {
	return func(o *Orchestrator) { o.parallel = enabled }
}

// WithTimeout bounds the whole build.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithObserver registers an observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an Orchestrator.
func New(compiler Compiler, bindgen BindingsGenerator, stager Stager, layout Layout, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		compiler: compiler,
		bindgen:  bindgen,
		stager:   stager,
		layout:   layout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Plan lists the steps Run will execute, in order.
func (o *Orchestrator) Plan() []Step {
	steps := []Step{
		{Name: StepCompile, Description: describe(o.compiler, "compile crate")},
		{Name: StepReset, Description: fmt.Sprintf("reset %s", o.layout.OutDir)},
		{Name: StepCopyAssets, Description: fmt.Sprintf("copy %s -> %s", o.layout.AssetsDir, o.layout.AssetsDest)},
		{Name: StepCopyEntry, Description: fmt.Sprintf("copy %s -> %s", o.layout.Entry, o.layout.OutDir)},
	}
	if o.verifier != nil {
		steps = append(steps, Step{Name: StepVerify, Description: "verify compiled artifact"})
	}
	steps = append(steps, Step{Name: StepBindgen, Description: describe(o.bindgen, "generate bindings")})
	return steps
}

// Run executes the build. The first failing step's error is returned as is
// and no later step runs.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	plan := o.Plan()
	steps := make(map[StepName]Step, len(plan))
	for _, s := range plan {
		steps[s.Name] = s
	}

	for _, obs := range o.observers {
		obs.BuildStarted(plan)
	}
	o.logger.Info("build started",
		zap.String("out_dir", o.layout.OutDir),
		zap.Bool("parallel_staging", o.parallel))

	start := time.Now()
	result := &Result{OutDir: o.layout.OutDir}
	err := o.run(ctx, steps, result)
	result.Duration = time.Since(start)

	if err != nil {
		o.logger.Error("build failed", zap.Duration("duration", result.Duration), zap.Error(err))
		for _, obs := range o.observers {
			obs.BuildFinished(nil, err)
		}
		return nil, err
	}

	if files, listErr := o.stager.List(o.layout.OutDir); listErr != nil {
		o.logger.Warn("could not list output directory", zap.Error(listErr))
	} else {
		result.Files = files
	}

	o.logger.Info("build finished",
		zap.Duration("duration", result.Duration),
		zap.Int("files", len(result.Files)))
	for _, obs := range o.observers {
		obs.BuildFinished(result, nil)
	}
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, steps map[StepName]Step, result *Result) error {
	compile := func(ctx context.Context) error {
		return o.step(ctx, steps[StepCompile], result, func(ctx context.Context) error {
			artifact, err := o.compiler.Compile(ctx)
			if err != nil {
				return err
			}
			result.mu.Lock()
			result.Artifact = artifact
			result.mu.Unlock()
			return nil
		})
	}

	if o.parallel {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return compile(gctx) })
		g.Go(func() error { return o.stage(gctx, steps, result) })
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		if err := compile(ctx); err != nil {
			return err
		}
		if err := o.stage(ctx, steps, result); err != nil {
			return err
		}
	}

	if o.verifier != nil {
		if err := o.step(ctx, steps[StepVerify], result, func(ctx context.Context) error {
			return o.verifier.Verify(ctx, result.Artifact)
		}); err != nil {
			return err
		}
	}

	return o.step(ctx, steps[StepBindgen], result, func(ctx context.Context) error {
		return o.bindgen.Generate(ctx, result.Artifact, o.layout.OutDir)
	})
}

func (o *Orchestrator) stage(ctx context.Context, steps map[StepName]Step, result *Result) error {
	if err := o.step(ctx, steps[StepReset], result, func(context.Context) error {
		return o.stager.Reset(o.layout.OutDir)
	}); err != nil {
		return err
	}
	if err := o.step(ctx, steps[StepCopyAssets], result, func(context.Context) error {
		return o.stager.CopyTree(o.layout.AssetsDir, o.layout.AssetsDest)
	}); err != nil {
		return err
	}
	return o.step(ctx, steps[StepCopyEntry], result, func(context.Context) error {
		return o.stager.CopyFile(o.layout.Entry, o.layout.OutDir)
	})
}

// step runs fn unless ctx is already done, recording timing and notifying
// observers.
func (o *Orchestrator) step(ctx context.Context, s Step, result *Result, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, obs := range o.observers {
		obs.StepStarted(s)
	}
	o.logger.Debug("step started", zap.String("step", string(s.Name)), zap.String("description", s.Description))

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	for _, obs := range o.observers {
		obs.StepFinished(s, elapsed, err)
	}
	if err != nil {
		o.logger.Warn("step failed", zap.String("step", string(s.Name)), zap.Duration("duration", elapsed), zap.Error(err))
		return err
	}
	result.record(s.Name, elapsed)
	o.logger.Info("step finished", zap.String("step", string(s.Name)), zap.Duration("duration", elapsed))
	return nil
}

func describe(v any, fallback string) string {
	if d, ok := v.(Describer); ok {
		return d.Describe()
	}
	return fallback
}
