// Package errors provides centralized error types and exit codes for boidsweb.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Exit codes for different error categories.
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitConfigError     = 2
	ExitValidationError = 3
	ExitFilesystemError = 4
	ExitBuildToolError  = 5
)

// BuildError is the base error type for categorized boidsweb errors.
type BuildError struct {
	Code    int
	Message string
	Cause   error
}

// Error returns the error message, including the cause if present.
func (e *BuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause of the error.
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// NewConfigErrorWithCause creates a new configuration error with an underlying cause.
func NewConfigErrorWithCause(msg string, cause error) *BuildError {
	return &BuildError{Code: ExitConfigError, Message: msg, Cause: cause}
}

// NewValidationError creates a new validation error.
func NewValidationError(msg string) *BuildError {
	return &BuildError{Code: ExitValidationError, Message: msg}
}

// NewValidationErrorWithCause creates a new validation error with an underlying cause.
func NewValidationErrorWithCause(msg string, cause error) *BuildError {
	return &BuildError{Code: ExitValidationError, Message: msg, Cause: cause}
}

// NewGeneralErrorWithCause creates a new general error with an underlying cause.
func NewGeneralErrorWithCause(msg string, cause error) *BuildError {
	return &BuildError{Code: ExitGeneralError, Message: msg, Cause: cause}
}

// FilesystemError reports a failed directory reset or copy.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// NewFilesystemError creates a FilesystemError. A nil err is replaced by a
// generic "failed" cause so Error never prints "<nil>".
func NewFilesystemError(op, path string, err error) *FilesystemError {
	if err == nil {
		err = stderrors.New("failed")
	}
	return &FilesystemError{Op: op, Path: path, Err: err}
}

// BuildToolFailure reports an external tool that could not be started,
// timed out, or exited with a non-zero status.
//
// ExitCode is -1 when the tool never produced an exit status.
type BuildToolFailure struct {
	Tool     string
	Args     []string
	ExitCode int
	Output   string
	Cause    error
}

func (e *BuildToolFailure) Error() string {
	var b strings.Builder
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, "%s exited with status %d", e.Tool, e.ExitCode)
	} else if e.Cause != nil {
		fmt.Fprintf(&b, "%s failed: %v", e.Tool, e.Cause)
	} else {
		fmt.Fprintf(&b, "%s failed", e.Tool)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		b.WriteString("\n")
		b.WriteString(out)
	}
	return b.String()
}

func (e *BuildToolFailure) Unwrap() error {
	return e.Cause
}

// CommandLine returns the tool invocation as a single shell-like string.
func (e *BuildToolFailure) CommandLine() string {
	return strings.TrimSpace(e.Tool + " " + strings.Join(e.Args, " "))
}

// IsConfigError checks if an error is a configuration error.
func IsConfigError(err error) bool {
	return codeOf(err) == ExitConfigError
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	return codeOf(err) == ExitValidationError
}

// IsFilesystemError checks if an error is, or wraps, a FilesystemError.
func IsFilesystemError(err error) bool {
	var fsErr *FilesystemError
	return stderrors.As(err, &fsErr)
}

// IsBuildToolFailure checks if an error is, or wraps, a BuildToolFailure.
func IsBuildToolFailure(err error) bool {
	var toolErr *BuildToolFailure
	return stderrors.As(err, &toolErr)
}

// GetExitCode returns the exit code for an error.
// Errors outside the taxonomy map to ExitGeneralError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if code := codeOf(err); code != 0 {
		return code
	}
	return ExitGeneralError
}

// codeOf walks the chain outermost-first, so a categorized BuildError
// keeps its code even when its cause is a filesystem or tool failure.
func codeOf(err error) int {
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		switch v := e.(type) {
		case *BuildError:
			return v.Code
		case *FilesystemError:
			return ExitFilesystemError
		case *BuildToolFailure:
			return ExitBuildToolError
		}
	}
	return 0
}
