package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected int
	}{
		{"ExitSuccess", ExitSuccess, 0},
		{"ExitGeneralError", ExitGeneralError, 1},
		{"ExitConfigError", ExitConfigError, 2},
		{"ExitValidationError", ExitValidationError, 3},
		{"ExitFilesystemError", ExitFilesystemError, 4},
		{"ExitBuildToolError", ExitBuildToolError, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, tt.code)
			}
		})
	}
}

func TestBuildError_Error(t *testing.T) {
	err := NewConfigErrorWithCause("config unreadable", errors.New("permission denied"))
	if got := err.Error(); got != "config unreadable: permission denied" {
		t.Errorf("Error() = %q", got)
	}
	if got := NewValidationError("config missing").Error(); got != "config missing" {
		t.Errorf("Error() = %q", got)
	}
}

func TestFilesystemError(t *testing.T) {
	cause := errors.New("no such file or directory")
	err := NewFilesystemError("copy", "assets", cause)

	if got := err.Error(); got != "copy assets: no such file or directory" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("expected FilesystemError to unwrap to its cause")
	}
	if NewFilesystemError("reset", "dist", nil).Err == nil {
		t.Error("nil cause should be replaced")
	}
}

func TestBuildToolFailure_Error(t *testing.T) {
	err := &BuildToolFailure{
		Tool:     "cargo",
		Args:     []string{"build", "--release"},
		ExitCode: 101,
		Output:   "error[E0425]: cannot find value `x`\n",
	}

	msg := err.Error()
	if !strings.HasPrefix(msg, "cargo exited with status 101") {
		t.Errorf("unexpected message prefix: %q", msg)
	}
	if !strings.Contains(msg, "E0425") {
		t.Errorf("expected tool output in message, got %q", msg)
	}
	if got := err.CommandLine(); got != "cargo build --release" {
		t.Errorf("CommandLine() = %q", got)
	}
}

func TestBuildToolFailure_NotStarted(t *testing.T) {
	cause := errors.New("executable file not found in $PATH")
	err := &BuildToolFailure{Tool: "wasm-bindgen", ExitCode: -1, Cause: cause}

	if got := err.Error(); got != "wasm-bindgen failed: executable file not found in $PATH" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("expected BuildToolFailure to unwrap to its cause")
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitGeneralError},
		{"config", NewConfigErrorWithCause("bad", errors.New("parse")), ExitConfigError},
		{"validation", NewValidationError("bad"), ExitValidationError},
		{"filesystem", NewFilesystemError("reset", "dist", errors.New("denied")), ExitFilesystemError},
		{"tool", &BuildToolFailure{Tool: "cargo", ExitCode: 1}, ExitBuildToolError},
		{"wrapped tool", fmt.Errorf("step compile: %w", &BuildToolFailure{Tool: "cargo", ExitCode: 1}), ExitBuildToolError},
		{"wrapped filesystem", fmt.Errorf("step reset: %w", NewFilesystemError("reset", "dist", nil)), ExitFilesystemError},
		{"validation wrapping filesystem", NewValidationErrorWithCause("bad artifact", NewFilesystemError("read", "boids.wasm", nil)), ExitValidationError},
		{"general wrapping tool", NewGeneralErrorWithCause("listen", &BuildToolFailure{Tool: "cargo", ExitCode: 1}), ExitGeneralError},
		{"wrapped validation wrapping tool", fmt.Errorf("step verify: %w", NewValidationErrorWithCause("bad", &BuildToolFailure{Tool: "cargo"})), ExitValidationError},
		{"filesystem wrapping config", NewFilesystemError("read", "boidsweb.yaml", NewConfigErrorWithCause("bad", nil)), ExitFilesystemError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.expected {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestIsHelpers(t *testing.T) {
	fsErr := fmt.Errorf("wrap: %w", NewFilesystemError("copy", "x", nil))
	if !IsFilesystemError(fsErr) {
		t.Error("IsFilesystemError should see through wrapping")
	}
	if IsBuildToolFailure(fsErr) {
		t.Error("filesystem error is not a tool failure")
	}
	if !IsBuildToolFailure(&BuildToolFailure{Tool: "cargo"}) {
		t.Error("IsBuildToolFailure should match")
	}
	if !IsConfigError(NewConfigErrorWithCause("x", nil)) || IsConfigError(NewValidationError("x")) {
		t.Error("IsConfigError mismatch")
	}
	if !IsValidationError(NewValidationErrorWithCause("x", errors.New("y"))) {
		t.Error("IsValidationError mismatch")
	}
}
