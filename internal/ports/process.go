package ports

import (
	"context"
	"time"
)

// ShellRunner runs shell-interpreted command lines with an environment overlay.
// The overlay is applied on top of the current process environment.
type ShellRunner interface {
	// Run executes the command line and blocks until it exits.
	// A non-zero exit is reported through CommandResult.ExitCode; the error is
	// reserved for commands that could not be started or were cancelled.
	Run(ctx context.Context, command string, env map[string]string) (CommandResult, error)

	// Start launches the command line without waiting for it to exit.
	Start(ctx context.Context, command string, env map[string]string) (Process, error)
}

// Process is a handle on a launched background command.
type Process interface {
	// Pid returns the operating-system process id.
	Pid() int

	// Terminate asks the process (and its children) to exit.
	Terminate() error

	// Kill forcibly stops the process (and its children).
	Kill() error

	// Wait blocks until the process exited or timeout elapsed and reports
	// whether it exited.
	Wait(timeout time.Duration) bool

	// Exited reports whether the process has already exited.
	Exited() bool

	// Output returns what the process wrote so far.
	Output() (stdout, stderr string)
}
