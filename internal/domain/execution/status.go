package execution

// StepStatus represents the state of a step within a run.
type StepStatus string

const (
	// StatusPending indicates the step has not started yet.
	StatusPending StepStatus = "pending"
	// StatusRunning indicates the step's commands are executing.
	StatusRunning StepStatus = "running"
	// StatusDone indicates the step completed successfully.
	StatusDone StepStatus = "done"
	// StatusFailed indicates the step failed and aborted the run.
	StatusFailed StepStatus = "failed"
	// StatusNotRun indicates the step never started because the run aborted.
	StatusNotRun StepStatus = "not-run"
)

// String returns the string representation of the status.
func (s StepStatus) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StatusDone, StatusFailed, StatusNotRun:
		return true
	case StatusPending, StatusRunning:
		return false
	}
	return false
}
