package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	bwerrors "github.com/catdevz/boidsweb/internal/errors"
	"github.com/catdevz/boidsweb/internal/stage"
	"github.com/catdevz/boidsweb/internal/wasmcheck"
)

// minimalModule is a valid, empty WebAssembly module.
var minimalModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeCompiler struct {
	rec      *recorder
	artifact string
	err      error
	block    bool
}

func (c *fakeCompiler) Compile(ctx context.Context) (string, error) {
	c.rec.add("compile")
	if c.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if c.err != nil {
		return "", c.err
	}
	if err := os.MkdirAll(filepath.Dir(c.artifact), 0755); err != nil {
		return "", err
	}
	return c.artifact, os.WriteFile(c.artifact, minimalModule, 0644)
}

func (c *fakeCompiler) Describe() string { return "cargo build --target wasm32-unknown-unknown --release" }

type fakeBindgen struct {
	rec *recorder
	err error
}

func (b *fakeBindgen) Generate(ctx context.Context, artifact, outDir string) error {
	b.rec.add("bindgen")
	if b.err != nil {
		return b.err
	}
	data, err := os.ReadFile(artifact)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outDir, "out_bg.wasm"), data, 0644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, "out.js"), []byte("export default function init() {}"), 0644)
}

type recordingStager struct {
	rec   *recorder
	local *stage.Local
}

func (s *recordingStager) Reset(dir string) error {
	s.rec.add("reset")
	return s.local.Reset(dir)
}

func (s *recordingStager) CopyTree(src, dst string) error {
	s.rec.add("copy-assets")
	return s.local.CopyTree(src, dst)
}

func (s *recordingStager) CopyFile(src, dstDir string) error {
	s.rec.add("copy-entry")
	return s.local.CopyFile(src, dstDir)
}

func (s *recordingStager) List(dir string) ([]string, error) {
	return s.local.List(dir)
}

type recordingVerifier struct {
	rec   *recorder
	inner Verifier
}

func (v *recordingVerifier) Verify(ctx context.Context, path string) error {
	v.rec.add("verify")
	return v.inner.Verify(ctx, path)
}

type fixture struct {
	root     string
	layout   Layout
	rec      *recorder
	compiler *fakeCompiler
	bindgen  *fakeBindgen
	stager   *recordingStager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "assets", "sprite.png"), "png")
	writeFile(t, filepath.Join(root, "web", "index.html"), "<html></html>")

	rec := &recorder{}
	out := filepath.Join(root, "web", "dist")
	return &fixture{
		root: root,
		layout: Layout{
			OutDir:     out,
			AssetsDir:  filepath.Join(root, "assets"),
			AssetsDest: out,
			Entry:      filepath.Join(root, "web", "index.html"),
		},
		rec:      rec,
		compiler: &fakeCompiler{rec: rec, artifact: filepath.Join(root, "target", "wasm32-unknown-unknown", "release", "boids.wasm")},
		bindgen:  &fakeBindgen{rec: rec},
		stager:   &recordingStager{rec: rec, local: stage.NewLocal(nil)},
	}
}

func (f *fixture) orchestrator(opts ...Option) *Orchestrator {
	return New(f.compiler, f.bindgen, f.stager, f.layout, opts...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRun_Scenario(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(WithVerifier(wasmcheck.NewChecker(nil)))

	result, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"index.html", "out.js", "out_bg.wasm", "sprite.png"}
	if diff := cmp.Diff(want, result.Files); diff != "" {
		t.Errorf("output listing mismatch (-want +got):\n%s", diff)
	}
	if result.Artifact != f.compiler.artifact {
		t.Errorf("Artifact = %q", result.Artifact)
	}
	if result.OutDir != f.layout.OutDir {
		t.Errorf("OutDir = %q", result.OutDir)
	}
	if len(result.Steps) != 6 {
		t.Errorf("expected 6 timed steps, got %+v", result.Steps)
	}
}

func TestRun_Ordering(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orchestrator().Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"compile", "reset", "copy-assets", "copy-entry", "bindgen"}
	if diff := cmp.Diff(want, f.rec.list()); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_OrderingWithVerify(t *testing.T) {
	f := newFixture(t)
	v := &recordingVerifier{rec: f.rec, inner: wasmcheck.NewChecker(nil)}
	if _, err := f.orchestrator(WithVerifier(v)).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"compile", "reset", "copy-assets", "copy-entry", "verify", "bindgen"}
	if diff := cmp.Diff(want, f.rec.list()); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_CleanSlate(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.layout.OutDir, "foo.txt"), "stray")
	writeFile(t, filepath.Join(f.layout.OutDir, "old", "boids_bg.wasm"), "stale")

	result, err := f.orchestrator().Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.layout.OutDir, "foo.txt")); !os.IsNotExist(err) {
		t.Error("stray file should be removed by the build")
	}
	for _, file := range result.Files {
		if file == "foo.txt" || file == "old/boids_bg.wasm" {
			t.Errorf("stale file %s survived", file)
		}
	}
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator()

	snapshot := func() map[string]string {
		result, err := o.Run(context.Background())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		contents := map[string]string{}
		for _, file := range result.Files {
			data, err := os.ReadFile(filepath.Join(f.layout.OutDir, filepath.FromSlash(file)))
			if err != nil {
				t.Fatal(err)
			}
			contents[file] = string(data)
		}
		return contents
	}

	first := snapshot()
	second := snapshot()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second build differs (-first +second):\n%s", diff)
	}
}

func TestRun_MissingAssets(t *testing.T) {
	f := newFixture(t)
	if err := os.RemoveAll(f.layout.AssetsDir); err != nil {
		t.Fatal(err)
	}

	_, err := f.orchestrator().Run(context.Background())
	if !bwerrors.IsFilesystemError(err) {
		t.Fatalf("expected FilesystemError, got %v", err)
	}
	for _, call := range f.rec.list() {
		if call == "bindgen" || call == "copy-entry" {
			t.Errorf("%s must not run after a failed copy", call)
		}
	}
	if bwerrors.GetExitCode(err) != bwerrors.ExitFilesystemError {
		t.Errorf("exit code = %d", bwerrors.GetExitCode(err))
	}
}

func TestRun_SymlinkCycleInAssets(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	for _, parallel := range []bool{false, true} {
		name := "sequential"
		if parallel {
			name = "parallel"
		}
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			if err := os.Symlink("..", filepath.Join(f.layout.AssetsDir, "loop")); err != nil {
				t.Fatal(err)
			}

			_, err := f.orchestrator(WithParallelStaging(parallel)).Run(context.Background())
			if !bwerrors.IsFilesystemError(err) {
				t.Fatalf("expected FilesystemError, got %v", err)
			}
			for _, call := range f.rec.list() {
				if call == "bindgen" {
					t.Error("bindgen must not run after a failed copy")
				}
			}
		})
	}
}

func TestRun_CompilerFailureLeavesOutputUntouched(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.layout.OutDir, "previous.js"), "last good build")
	f.compiler.err = &bwerrors.BuildToolFailure{Tool: "cargo", ExitCode: 101, Output: "error[E0308]"}

	_, err := f.orchestrator().Run(context.Background())
	var toolErr *bwerrors.BuildToolFailure
	if !errors.As(err, &toolErr) || toolErr != f.compiler.err {
		t.Fatalf("expected the compiler's error unchanged, got %v", err)
	}
	if bwerrors.GetExitCode(err) == 0 {
		t.Error("exit code must be non-zero")
	}
	if diff := cmp.Diff([]string{"compile"}, f.rec.list()); diff != "" {
		t.Errorf("no step may run after compile fails (-want +got):\n%s", diff)
	}
	data, readErr := os.ReadFile(filepath.Join(f.layout.OutDir, "previous.js"))
	if readErr != nil || string(data) != "last good build" {
		t.Error("output directory was modified by a failed compile")
	}
}

func TestRun_BindgenFailure(t *testing.T) {
	f := newFixture(t)
	f.bindgen.err = &bwerrors.BuildToolFailure{Tool: "wasm-bindgen", ExitCode: 1}

	_, err := f.orchestrator().Run(context.Background())
	if !bwerrors.IsBuildToolFailure(err) {
		t.Fatalf("expected BuildToolFailure, got %v", err)
	}
	// Staged files stay in place for inspection.
	if _, err := os.Stat(filepath.Join(f.layout.OutDir, "index.html")); err != nil {
		t.Error("partially populated output should be left in place")
	}
}

func TestRun_VerifyFailureSkipsBindgen(t *testing.T) {
	f := newFixture(t)
	f.compiler = &fakeCompiler{rec: f.rec, artifact: filepath.Join(f.root, "bad.wasm")}
	bad := &badArtifactCompiler{fakeCompiler: f.compiler}

	o := New(bad, f.bindgen, f.stager, f.layout, WithVerifier(wasmcheck.NewChecker(nil)))
	_, err := o.Run(context.Background())
	if !bwerrors.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, call := range f.rec.list() {
		if call == "bindgen" {
			t.Error("bindgen must not run on an invalid artifact")
		}
	}
}

type badArtifactCompiler struct {
	*fakeCompiler
}

func (c *badArtifactCompiler) Compile(ctx context.Context) (string, error) {
	c.rec.add("compile")
	return c.artifact, os.WriteFile(c.artifact, []byte("<!doctype html>"), 0644)
}

func TestRun_ParallelStaging(t *testing.T) {
	f := newFixture(t)
	result, err := f.orchestrator(WithParallelStaging(true)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	calls := f.rec.list()
	if calls[len(calls)-1] != "bindgen" {
		t.Errorf("bindgen must run last, got %v", calls)
	}
	want := []string{"index.html", "out.js", "out_bg.wasm", "sprite.png"}
	if diff := cmp.Diff(want, result.Files); diff != "" {
		t.Errorf("output listing mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_ParallelCompileFailure(t *testing.T) {
	f := newFixture(t)
	f.compiler.err = &bwerrors.BuildToolFailure{Tool: "cargo", ExitCode: 101}

	_, err := f.orchestrator(WithParallelStaging(true)).Run(context.Background())
	if !bwerrors.IsBuildToolFailure(err) {
		t.Fatalf("expected BuildToolFailure, got %v", err)
	}
	for _, call := range f.rec.list() {
		if call == "bindgen" {
			t.Error("bindgen must wait for a successful compile")
		}
	}
}

func TestRun_Timeout(t *testing.T) {
	f := newFixture(t)
	f.compiler.block = true

	_, err := f.orchestrator(WithTimeout(50 * time.Millisecond)).Run(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRun_CanceledBeforeStart(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.orchestrator().Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(f.rec.list()) != 0 {
		t.Errorf("nothing should run, got %v", f.rec.list())
	}
}

func TestPlan(t *testing.T) {
	f := newFixture(t)

	var names []StepName
	for _, s := range f.orchestrator().Plan() {
		names = append(names, s.Name)
	}
	want := []StepName{StepCompile, StepReset, StepCopyAssets, StepCopyEntry, StepBindgen}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}

	plan := f.orchestrator(WithVerifier(wasmcheck.NewChecker(nil))).Plan()
	if plan[4].Name != StepVerify {
		t.Errorf("verify should precede bindgen, got %v", plan)
	}
	if plan[0].Description != f.compiler.Describe() {
		t.Errorf("compile description = %q", plan[0].Description)
	}
	if plan[5].Description != "generate bindings" {
		t.Errorf("bindgen description = %q", plan[5].Description)
	}
	if len(f.rec.list()) != 0 {
		t.Error("Plan must not execute anything")
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (e *eventLog) add(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, s)
}

func (e *eventLog) BuildStarted(steps []Step) { e.add("build_start") }
func (e *eventLog) StepStarted(step Step)     { e.add("start:" + string(step.Name)) }
func (e *eventLog) StepFinished(step Step, _ time.Duration, err error) {
	if err != nil {
		e.add("fail:" + string(step.Name))
		return
	}
	e.add("end:" + string(step.Name))
}
func (e *eventLog) BuildFinished(result *Result, err error) {
	if err != nil {
		e.add("build_failed")
		return
	}
	e.add("build_end")
}

func TestRun_Observers(t *testing.T) {
	f := newFixture(t)
	log := &eventLog{}
	if _, err := f.orchestrator(WithObserver(log)).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{
		"build_start",
		"start:compile", "end:compile",
		"start:reset", "end:reset",
		"start:copy-assets", "end:copy-assets",
		"start:copy-entry", "end:copy-entry",
		"start:bindgen", "end:bindgen",
		"build_end",
	}
	if diff := cmp.Diff(want, log.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_ObserversOnFailure(t *testing.T) {
	f := newFixture(t)
	f.compiler.err = errors.New("boom")
	log := &eventLog{}
	f.orchestrator(WithObserver(log)).Run(context.Background())

	want := []string{"build_start", "start:compile", "fail:compile", "build_failed"}
	if diff := cmp.Diff(want, log.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}
