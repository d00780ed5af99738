package wasmcheck

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	bwerrors "github.com/catdevz/boidsweb/internal/errors"
)

// emptyModule is the smallest valid module: magic and version only.
var emptyModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// tickModule imports env.log: () -> () and exports tick: () -> () and a memory.
var tickModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section: one func type () -> ()
	0x01, 0x04, 0x01, 0x60, 0x00, 0x00,
	// import section: env.log func type 0
	0x02, 0x0b, 0x01, 0x03, 'e', 'n', 'v', 0x03, 'l', 'o', 'g', 0x00, 0x00,
	// function section: one local func of type 0
	0x03, 0x02, 0x01, 0x00,
	// memory section: one memory, min 1 page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// export section: "tick" func 1, "memory" mem 0
	0x07, 0x11, 0x02,
	0x04, 't', 'i', 'c', 'k', 0x00, 0x01,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	// code section: one empty body
	0x0a, 0x04, 0x01, 0x02, 0x00, 0x0b,
}

func TestInspectBytes_Empty(t *testing.T) {
	report, err := InspectBytes(context.Background(), emptyModule)
	if err != nil {
		t.Fatalf("InspectBytes failed: %v", err)
	}
	if report.Size != int64(len(emptyModule)) {
		t.Errorf("Size = %d", report.Size)
	}
	if len(report.Exports) != 0 || len(report.Imports) != 0 {
		t.Errorf("expected no exports or imports, got %+v", report)
	}
}

func TestInspectBytes_ExportsAndImports(t *testing.T) {
	report, err := InspectBytes(context.Background(), tickModule)
	if err != nil {
		t.Fatalf("InspectBytes failed: %v", err)
	}

	wantExports := []Function{{Name: "tick", Params: []string{}, Results: []string{}}}
	if diff := cmp.Diff(wantExports, report.Exports); diff != "" {
		t.Errorf("exports mismatch (-want +got):\n%s", diff)
	}
	wantImports := []Function{{Module: "env", Name: "log", Params: []string{}, Results: []string{}}}
	if diff := cmp.Diff(wantImports, report.Imports); diff != "" {
		t.Errorf("imports mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"env"}, report.ImportedModules); diff != "" {
		t.Errorf("imported modules mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"memory"}, report.ExportedMemory); diff != "" {
		t.Errorf("exported memory mismatch (-want +got):\n%s", diff)
	}
}

func TestInspectBytes_BadMagic(t *testing.T) {
	_, err := InspectBytes(context.Background(), []byte("<html></html>"))
	if !bwerrors.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInspectBytes_Truncated(t *testing.T) {
	_, err := InspectBytes(context.Background(), tickModule[:20])
	if !bwerrors.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInspect_MissingFile(t *testing.T) {
	_, err := Inspect(context.Background(), filepath.Join(t.TempDir(), "boids.wasm"))
	if !bwerrors.IsFilesystemError(err) {
		t.Fatalf("expected FilesystemError, got %v", err)
	}
}

func TestChecker_Verify(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "out.wasm")
	bad := filepath.Join(dir, "bad.wasm")
	if err := os.WriteFile(good, tickModule, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("not wasm"), 0644); err != nil {
		t.Fatal(err)
	}

	c := NewChecker(nil)
	if err := c.Verify(context.Background(), good); err != nil {
		t.Errorf("Verify(good) = %v", err)
	}
	if err := c.Verify(context.Background(), bad); err == nil {
		t.Error("Verify(bad) should fail")
	}
}

func TestFunctionSignature(t *testing.T) {
	f := Function{Module: "wbg", Name: "__wbindgen_throw", Params: []string{"i32", "i32"}}
	if got := f.Signature(); got != "wbg.__wbindgen_throw(i32, i32)" {
		t.Errorf("Signature() = %q", got)
	}
	f = Function{Name: "main", Params: []string{}, Results: []string{"i32"}}
	if got := f.Signature(); got != "main() -> i32" {
		t.Errorf("Signature() = %q", got)
	}
}
