// Package exitcode maps docsteps outcomes to process exit codes.
package exitcode

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/docsteps/internal/domain/failure"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates every step completed.
	Success = 0

	// RunFailed indicates a requirement, step or readiness check failed.
	RunFailed = 1

	// ManifestError indicates the manifest could not be read, parsed or validated.
	ManifestError = 2

	// Interrupted indicates the run was cancelled by SIGINT or SIGTERM.
	Interrupted = 130
)

// Error carries an explicit exit code through cobra's RunE.
type Error struct {
	Code int
	Err  error
}

// Error returns the wrapped error message.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithCode wraps err so DetermineExitCode returns code for it.
func WithCode(code int, err error) error {
	return &Error{Code: code, Err: err}
}

// DetermineExitCode analyzes an error and returns the appropriate exit code.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}

	if errors.Is(err, context.Canceled) {
		return Interrupted
	}

	if failure.KindOf(err) == failure.KindManifestInvalid {
		return ManifestError
	}

	return RunFailed
}

// Description returns a human-readable description of an exit code.
func Description(code int) string {
	switch code {
	case Success:
		return "Success"
	case RunFailed:
		return "Run failed"
	case ManifestError:
		return "Manifest error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
