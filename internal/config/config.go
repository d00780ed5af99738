// Package config loads and validates boidsweb.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/catdevz/boidsweb/internal/util"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "boidsweb.yaml"

// Config represents the boidsweb.yaml configuration
type Config struct {
	Crate   CrateConfig   `yaml:"crate"`
	Web     WebConfig     `yaml:"web"`
	Bindgen BindgenConfig `yaml:"bindgen"`
	Build   BuildConfig   `yaml:"build"`
	State   StateConfig   `yaml:"state"`
	Serve   ServeConfig   `yaml:"serve"`

	// BaseDir is the directory relative paths are resolved against.
	BaseDir string `yaml:"-"`
	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-"`
}

// CrateConfig describes the Rust crate compiled to WebAssembly
type CrateConfig struct {
	Dir      string   `yaml:"dir"`
	Name     string   `yaml:"name"`
	Artifact string   `yaml:"artifact"` // file name under the profile dir, default <name>.wasm
	Release  bool     `yaml:"release"`
	Target   string   `yaml:"target"`
	Features []string `yaml:"features"`
}

// WebConfig holds the staging layout
type WebConfig struct {
	OutDir       string `yaml:"out_dir"`
	AssetsDir    string `yaml:"assets_dir"`
	AssetsSubdir string `yaml:"assets_subdir"` // "" copies assets into out_dir itself
	Entry        string `yaml:"entry"`
}

// BindgenConfig holds bindings generator settings
type BindgenConfig struct {
	Tool       string `yaml:"tool"`
	Target     string `yaml:"target"`
	OutName    string `yaml:"out_name"`
	TypeScript bool   `yaml:"typescript"`
}

// BuildConfig holds pipeline behavior switches
type BuildConfig struct {
	Timeout         string `yaml:"timeout"`
	ToolTimeout     string `yaml:"tool_timeout"`
	ParallelStaging bool   `yaml:"parallel_staging"`
	VerifyArtifact  bool   `yaml:"verify_artifact"`
	PTY             bool   `yaml:"pty"`
}

// StateConfig holds where logs, events and the lock live
type StateConfig struct {
	Dir string `yaml:"dir"`
}

// ServeConfig holds dev server settings
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// BindgenTargets lists the --target modes wasm-bindgen accepts.
var BindgenTargets = []string{"web", "bundler", "nodejs", "no-modules", "deno", "experimental-nodejs-module"}

// Default returns the configuration matching the original build script.
func Default() *Config {
	return &Config{
		Crate: CrateConfig{
			Dir:     ".",
			Name:    "boids",
			Release: true,
			Target:  "wasm32-unknown-unknown",
		},
		Web: WebConfig{
			OutDir:       "web/dist",
			AssetsDir:    "assets",
			AssetsSubdir: "assets",
			Entry:        "web/index.html",
		},
		Bindgen: BindgenConfig{
			Tool:       "wasm-bindgen",
			Target:     "web",
			TypeScript: true,
		},
		Build: BuildConfig{
			VerifyArtifact: true,
			PTY:            true,
		},
		State:   StateConfig{Dir: ".boidsweb"},
		Serve:   ServeConfig{Addr: "127.0.0.1:8080"},
		BaseDir: ".",
	}
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field    string
	Message  string
	Expected string
}

func (e ValidationError) Error() string {
	if e.Expected != "" {
		return fmt.Sprintf("%s: %s (expected: %s)", e.Field, e.Message, e.Expected)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadConfig reads and parses a configuration file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.Path = path
	config.BaseDir = filepath.Dir(path)
	return config, nil
}

// LoadOrDefault reads path if it exists and falls back to Default otherwise.
// Any other read or parse error is returned.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		config := Default()
		config.BaseDir = filepath.Dir(path)
		return config, nil
	}
	return LoadConfig(path)
}

// Validate checks if the configuration has all required fields
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	required := []struct {
		field string
		value string
	}{
		{"crate.name", c.Crate.Name},
		{"crate.target", c.Crate.Target},
		{"web.out_dir", c.Web.OutDir},
		{"web.assets_dir", c.Web.AssetsDir},
		{"web.entry", c.Web.Entry},
		{"bindgen.tool", c.Bindgen.Tool},
		{"bindgen.target", c.Bindgen.Target},
		{"state.dir", c.State.Dir},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errors = append(errors, ValidationError{
				Field:   r.field,
				Message: "required field is missing",
			})
		}
	}

	if c.Web.OutDir != "" && util.IsRootPath(c.Web.OutDir) {
		errors = append(errors, ValidationError{
			Field:   "web.out_dir",
			Message: "must not be the project root, it is removed on every build",
		})
	}

	if c.Web.OutDir != "" && c.Web.AssetsDir != "" {
		out := c.Resolve(c.Web.OutDir)
		assets := c.Resolve(c.Web.AssetsDir)
		if util.IsWithin(out, assets) || util.IsWithin(assets, out) {
			errors = append(errors, ValidationError{
				Field:   "web.assets_dir",
				Message: "must not overlap web.out_dir",
			})
		}
		if c.Web.Entry != "" && util.IsWithin(out, c.Resolve(c.Web.Entry)) {
			errors = append(errors, ValidationError{
				Field:   "web.entry",
				Message: "must not be inside web.out_dir",
			})
		}
		if util.IsWithin(out, c.Resolve(c.State.Dir)) {
			errors = append(errors, ValidationError{
				Field:   "state.dir",
				Message: "must not be inside web.out_dir",
			})
		}
	}

	if c.Web.AssetsSubdir != "" {
		sub := filepath.ToSlash(filepath.Clean(c.Web.AssetsSubdir))
		if filepath.IsAbs(c.Web.AssetsSubdir) || sub == ".." || strings.HasPrefix(sub, "../") {
			errors = append(errors, ValidationError{
				Field:    "web.assets_subdir",
				Message:  fmt.Sprintf("invalid value: %s", c.Web.AssetsSubdir),
				Expected: "a relative path inside web.out_dir",
			})
		}
	}

	if c.Bindgen.Target != "" && !contains(BindgenTargets, c.Bindgen.Target) {
		errors = append(errors, ValidationError{
			Field:    "bindgen.target",
			Message:  fmt.Sprintf("invalid value: %s", c.Bindgen.Target),
			Expected: strings.Join(BindgenTargets, ", "),
		})
	}

	for field, value := range map[string]string{
		"build.timeout":      c.Build.Timeout,
		"build.tool_timeout": c.Build.ToolTimeout,
	} {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d < 0 {
			errors = append(errors, ValidationError{
				Field:    field,
				Message:  fmt.Sprintf("invalid duration: %s", value),
				Expected: "a non-negative Go duration such as 10m (0 disables)",
			})
		}
	}

	return errors
}

// ValidatePaths checks if referenced paths exist
func (c *Config) ValidatePaths() []ValidationError {
	var errors []ValidationError

	if st, err := os.Stat(c.Resolve(c.Crate.Dir)); err != nil || !st.IsDir() {
		errors = append(errors, ValidationError{
			Field:   "crate.dir",
			Message: fmt.Sprintf("directory does not exist: %s", c.Crate.Dir),
		})
	}

	if st, err := os.Stat(c.Resolve(c.Web.AssetsDir)); err != nil || !st.IsDir() {
		errors = append(errors, ValidationError{
			Field:   "web.assets_dir",
			Message: fmt.Sprintf("directory does not exist: %s", c.Web.AssetsDir),
		})
	}

	if st, err := os.Stat(c.Resolve(c.Web.Entry)); err != nil || st.IsDir() {
		errors = append(errors, ValidationError{
			Field:   "web.entry",
			Message: fmt.Sprintf("file does not exist: %s", c.Web.Entry),
		})
	}

	return errors
}

// Resolve makes a configured path absolute-or-relative to BaseDir.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	base := c.BaseDir
	if base == "" {
		base = "."
	}
	return filepath.Join(base, path)
}

// AssetsDest returns where the assets tree is copied to.
func (c *Config) AssetsDest() string {
	if c.Web.AssetsSubdir == "" {
		return c.Resolve(c.Web.OutDir)
	}
	return filepath.Join(c.Resolve(c.Web.OutDir), c.Web.AssetsSubdir)
}

// LockPath returns the lock file guarding the output directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Resolve(c.State.Dir), "build.lock")
}

// LogDir returns the directory of rotated build logs.
func (c *Config) LogDir() string {
	return filepath.Join(c.Resolve(c.State.Dir), "logs")
}

// BuildTimeout returns the whole-build timeout, zero meaning none.
func (b BuildConfig) BuildTimeout() time.Duration {
	return parseDuration(b.Timeout)
}

// ToolTimeoutDuration returns the per-tool timeout, zero meaning none.
func (b BuildConfig) ToolTimeoutDuration() time.Duration {
	return parseDuration(b.ToolTimeout)
}

// ArtifactName returns the compiled binary's file name.
func (c CrateConfig) ArtifactName() string {
	if c.Artifact != "" {
		return c.Artifact
	}
	return c.Name + ".wasm"
}

// Profile returns the cargo profile directory name.
func (c CrateConfig) Profile() string {
	if c.Release {
		return "release"
	}
	return "debug"
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
