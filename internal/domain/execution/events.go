package execution

import "time"

// EventType identifies what happened during a run.
type EventType string

// Event types emitted to an Observer.
const (
	EventPhaseChanged EventType = "phase_changed"
	EventStepStarted  EventType = "step_started"
	EventStepFinished EventType = "step_finished"
	EventStepFailed   EventType = "step_failed"
)

// Event is a progress notification. StepID and Result are set for step
// events; Phase is set for phase changes.
type Event struct {
	Type   EventType
	Time   time.Time
	Phase  Phase
	StepID string
	Result StepResult
	Err    error
}

// Observer receives run events. It is called synchronously from the run
// goroutine and must not block.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnEvent calls f(e).
func (f ObserverFunc) OnEvent(e Event) {
	f(e)
}

type nopObserver struct{}

func (nopObserver) OnEvent(Event) {}
