// Package execution runs the steps of a manifest: the Executor runs one step,
// the Scheduler orders steps by dependency, Cleanup tears everything down,
// and the Runner drives a whole run through its lifecycle.
package execution

import (
	"time"

	"github.com/felixgeelhaar/docsteps/internal/domain/manifest"
)

// StepResult captures the outcome of executing a single step.
type StepResult struct {
	stepID     manifest.StepID
	status     StepStatus
	err        error
	duration   time.Duration
	stdout     string
	stderr     string
	background bool
	pids       []int
}

// NewStepResult creates a new StepResult.
func NewStepResult(stepID manifest.StepID, status StepStatus, err error) StepResult {
	return StepResult{
		stepID: stepID,
		status: status,
		err:    err,
	}
}

// StepID returns the ID of the step that was executed.
func (r StepResult) StepID() manifest.StepID {
	return r.stepID
}

// Status returns the final status of the step.
func (r StepResult) Status() StepStatus {
	return r.status
}

// Error returns any error that occurred during execution.
func (r StepResult) Error() error {
	return r.err
}

// Duration returns how long the step took to execute.
func (r StepResult) Duration() time.Duration {
	return r.duration
}

// Stdout returns the captured standard output of the foreground commands.
func (r StepResult) Stdout() string {
	return r.stdout
}

// Stderr returns the captured standard error of the foreground commands.
func (r StepResult) Stderr() string {
	return r.stderr
}

// Background reports whether the step started background processes.
func (r StepResult) Background() bool {
	return r.background
}

// Pids returns the ids of the background processes the step started.
func (r StepResult) Pids() []int {
	return append([]int(nil), r.pids...)
}

// Success returns true if the step completed successfully.
func (r StepResult) Success() bool {
	return r.status == StatusDone
}

// NotRun returns true if the step never started.
func (r StepResult) NotRun() bool {
	return r.status == StatusNotRun
}

// WithDuration returns a new StepResult with duration set.
func (r StepResult) WithDuration(d time.Duration) StepResult {
	r.duration = d
	return r
}

// WithOutput returns a new StepResult with captured output set.
func (r StepResult) WithOutput(stdout, stderr string) StepResult {
	r.stdout = stdout
	r.stderr = stderr
	return r
}

// WithProcesses returns a new StepResult recording background process ids.
func (r StepResult) WithProcesses(pids []int) StepResult {
	r.background = len(pids) > 0
	r.pids = append([]int(nil), pids...)
	return r
}
