// Package ports defines interfaces for external dependencies.
package ports

import (
	"context"
	"errors"
	"strings"
)

// CommandResult represents the result of executing a command.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success returns true if the command exited with code 0.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// Combined returns stdout followed by stderr, trimmed.
// Some tools (older python, java) print their version on stderr.
func (r CommandResult) Combined() string {
	return strings.TrimSpace(strings.TrimSpace(r.Stdout) + "\n" + strings.TrimSpace(r.Stderr))
}

// CommandCall records a command invocation.
type CommandCall struct {
	Command string
	Args    []string
	Env     map[string]string
}

// CommandRunner executes a program with arguments, without a shell.
type CommandRunner interface {
	Run(ctx context.Context, command string, args ...string) (CommandResult, error)
}

// ErrCommandNotFound is wrapped by CommandRunner implementations when the
// program is not installed.
var ErrCommandNotFound = errors.New("command not found")
