package command

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/felixgeelhaar/docsteps/internal/ports"
)

// IsCommandNotFound reports whether an error indicates a missing executable.
func IsCommandNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, ports.ErrCommandNotFound) {
		return true
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
		return true
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return true
	}
	return false
}

// notFound tags a missing-executable error with ports.ErrCommandNotFound.
// Other errors are returned unchanged.
func notFound(command string, err error) error {
	if !IsCommandNotFound(err) || errors.Is(err, ports.ErrCommandNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ports.ErrCommandNotFound, command, err)
}
