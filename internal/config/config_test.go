package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "boidsweb.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func hasField(errs []ValidationError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("default config should be valid, got %v", errs)
	}
	if cfg.Crate.ArtifactName() != "boids.wasm" {
		t.Errorf("ArtifactName() = %q", cfg.Crate.ArtifactName())
	}
	if cfg.Crate.Profile() != "release" {
		t.Errorf("Profile() = %q", cfg.Crate.Profile())
	}
}

func TestLoadConfig_PartialKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
crate:
  name: flock
web:
  out_dir: public
build:
  tool_timeout: 5m
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Crate.Name != "flock" {
		t.Errorf("Crate.Name = %q", cfg.Crate.Name)
	}
	if cfg.Crate.Target != "wasm32-unknown-unknown" {
		t.Errorf("Crate.Target should keep default, got %q", cfg.Crate.Target)
	}
	if !cfg.Crate.Release || !cfg.Build.VerifyArtifact {
		t.Error("bool defaults should survive a partial file")
	}
	if cfg.Resolve(cfg.Web.OutDir) != filepath.Join(dir, "public") {
		t.Errorf("out dir not resolved against config dir: %q", cfg.Resolve(cfg.Web.OutDir))
	}
	if cfg.Build.ToolTimeoutDuration() != 5*time.Minute {
		t.Errorf("ToolTimeoutDuration() = %v", cfg.Build.ToolTimeoutDuration())
	}
	if cfg.Build.BuildTimeout() != 0 {
		t.Errorf("BuildTimeout() = %v, want 0", cfg.Build.BuildTimeout())
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "crate: [unclosed")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOrDefault(filepath.Join(dir, DefaultPath))
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if cfg.Path != "" {
		t.Errorf("Path should be empty for defaults, got %q", cfg.Path)
	}
	if cfg.BaseDir != dir {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, dir)
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	cfg := Default()
	cfg.Crate.Name = ""
	cfg.Bindgen.Tool = " "

	errs := cfg.Validate()
	if !hasField(errs, "crate.name") {
		t.Error("expected crate.name error")
	}
	if !hasField(errs, "bindgen.tool") {
		t.Error("expected bindgen.tool error")
	}
}

func TestValidate_OutDirRoot(t *testing.T) {
	cfg := Default()
	cfg.Web.OutDir = "./"
	if !hasField(cfg.Validate(), "web.out_dir") {
		t.Error("expected web.out_dir error for project root")
	}
}

func TestValidate_Overlaps(t *testing.T) {
	cfg := Default()
	cfg.Web.AssetsDir = "web"
	cfg.Web.Entry = "web/dist/index.html"
	cfg.State.Dir = "web/dist/.state"

	errs := cfg.Validate()
	for _, field := range []string{"web.assets_dir", "web.entry", "state.dir"} {
		if !hasField(errs, field) {
			t.Errorf("expected %s error, got %v", field, errs)
		}
	}
}

func TestValidate_BadValues(t *testing.T) {
	cfg := Default()
	cfg.Bindgen.Target = "browser"
	cfg.Build.Timeout = "soon"
	cfg.Build.ToolTimeout = "-1s"
	cfg.Web.AssetsSubdir = "../escape"

	errs := cfg.Validate()
	for _, field := range []string{"bindgen.target", "build.timeout", "build.tool_timeout", "web.assets_subdir"} {
		if !hasField(errs, field) {
			t.Errorf("expected %s error, got %v", field, errs)
		}
	}
}

func TestValidate_Durations(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"", true},
		{"0", true},
		{"0s", true},
		{"90s", true},
		{"10m", true},
		{"-1s", false},
		{"10", false},
		{"soon", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cfg := Default()
			cfg.Build.Timeout = tt.value
			cfg.Build.ToolTimeout = tt.value
			errs := cfg.Validate()
			for _, field := range []string{"build.timeout", "build.tool_timeout"} {
				if got := hasField(errs, field); got == tt.valid {
					t.Errorf("%s=%q: error reported = %v, want %v", field, tt.value, got, !tt.valid)
				}
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "bindgen.target", Message: "invalid value: x", Expected: "web"}
	if got := err.Error(); got != "bindgen.target: invalid value: x (expected: web)" {
		t.Errorf("Error() = %q", got)
	}
}

func TestValidatePaths(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.BaseDir = dir

	errs := cfg.ValidatePaths()
	if !hasField(errs, "web.assets_dir") || !hasField(errs, "web.entry") {
		t.Fatalf("expected missing path errors, got %v", errs)
	}

	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "web"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "web", "index.html"), []byte("<html></html>"), 0644); err != nil {
		t.Fatal(err)
	}

	if errs := cfg.ValidatePaths(); len(errs) != 0 {
		t.Errorf("expected no path errors, got %v", errs)
	}
}

func TestAssetsDest(t *testing.T) {
	cfg := Default()
	cfg.BaseDir = "/project"
	if got := filepath.ToSlash(cfg.AssetsDest()); got != "/project/web/dist/assets" {
		t.Errorf("AssetsDest() = %q", got)
	}
	cfg.Web.AssetsSubdir = ""
	if got := filepath.ToSlash(cfg.AssetsDest()); got != "/project/web/dist" {
		t.Errorf("AssetsDest() with empty subdir = %q", got)
	}
}
