// Package wasmcheck inspects compiled WebAssembly artifacts.
//
// Modules are compiled with wazero but never instantiated, so inspection
// runs no guest code and needs none of the host imports.
package wasmcheck

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	bwerrors "github.com/catdevz/boidsweb/internal/errors"
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// Function is an exported or imported function signature.
type Function struct {
	Module  string   `json:"module,omitempty"`
	Name    string   `json:"name"`
	Params  []string `json:"params"`
	Results []string `json:"results"`
}

// Signature renders the function as name(params) -> results.
func (f Function) Signature() string {
	name := f.Name
	if f.Module != "" {
		name = f.Module + "." + f.Name
	}
	sig := fmt.Sprintf("%s(%s)", name, strings.Join(f.Params, ", "))
	if len(f.Results) > 0 {
		sig += " -> " + strings.Join(f.Results, ", ")
	}
	return sig
}

// Report summarizes a module.
type Report struct {
	Path            string     `json:"path"`
	Size            int64      `json:"size"`
	Exports         []Function `json:"exports"`
	Imports         []Function `json:"imports"`
	ExportedMemory  []string   `json:"exported_memory,omitempty"`
	ImportedModules []string   `json:"imported_modules,omitempty"`
}

// Inspect reads and compiles the module at path.
func Inspect(ctx context.Context, path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bwerrors.NewFilesystemError("read", path, err)
	}
	report, err := InspectBytes(ctx, data)
	if err != nil {
		return nil, err
	}
	report.Path = path
	return report, nil
}

// InspectBytes compiles a module held in memory.
func InspectBytes(ctx context.Context, data []byte) (*Report, error) {
	if len(data) < 8 || !bytes.Equal(data[:4], wasmMagic) {
		return nil, bwerrors.NewValidationError("not a WebAssembly module (bad magic)")
	}

	// The interpreter skips native code generation, which is all
	// inspection needs.
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer r.Close(ctx)

	compiled, err := r.CompileModule(ctx, data)
	if err != nil {
		return nil, bwerrors.NewValidationErrorWithCause("invalid WebAssembly module", err)
	}
	defer compiled.Close(ctx)

	report := &Report{Size: int64(len(data))}

	for name, def := range compiled.ExportedFunctions() {
		report.Exports = append(report.Exports, function("", name, def))
	}
	sort.Slice(report.Exports, func(i, j int) bool { return report.Exports[i].Name < report.Exports[j].Name })

	modules := map[string]bool{}
	for _, def := range compiled.ImportedFunctions() {
		module, name, _ := def.Import()
		report.Imports = append(report.Imports, function(module, name, def))
		modules[module] = true
	}
	sort.Slice(report.Imports, func(i, j int) bool {
		a, b := report.Imports[i], report.Imports[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		return a.Name < b.Name
	})
	for m := range modules {
		report.ImportedModules = append(report.ImportedModules, m)
	}
	sort.Strings(report.ImportedModules)

	for name := range compiled.ExportedMemories() {
		report.ExportedMemory = append(report.ExportedMemory, name)
	}
	sort.Strings(report.ExportedMemory)

	return report, nil
}

func function(module, name string, def api.FunctionDefinition) Function {
	f := Function{Module: module, Name: name, Params: []string{}, Results: []string{}}
	for _, t := range def.ParamTypes() {
		f.Params = append(f.Params, api.ValueTypeName(t))
	}
	for _, t := range def.ResultTypes() {
		f.Results = append(f.Results, api.ValueTypeName(t))
	}
	return f
}

// Checker verifies a compiled artifact before bindings are generated.
type Checker struct {
	logger *zap.Logger
}

// NewChecker creates a Checker. A nil logger disables logging.
func NewChecker(logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{logger: logger}
}

// Verify fails when path is not a loadable WebAssembly module.
func (c *Checker) Verify(ctx context.Context, path string) error {
	report, err := Inspect(ctx, path)
	if err != nil {
		return err
	}
	c.logger.Info("artifact verified",
		zap.String("path", path),
		zap.Int64("size", report.Size),
		zap.Int("exports", len(report.Exports)),
		zap.Int("imports", len(report.Imports)),
		zap.Strings("import_modules", report.ImportedModules))
	return nil
}
