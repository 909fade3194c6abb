package execution

import (
	"sync"

	"github.com/felixgeelhaar/docsteps/internal/ports"
)

// OwnedProcess is a background process together with the step that started it.
type OwnedProcess struct {
	StepID  string
	Process ports.Process
}

// ProcessTable owns the handles of every background process spawned during a
// run. The Executor adopts processes and Cleanup releases them; nothing else
// holds a handle.
type ProcessTable struct {
	mu      sync.Mutex
	entries []OwnedProcess
}

// NewProcessTable creates an empty table.
func NewProcessTable() *ProcessTable {
	return &ProcessTable{}
}

// Adopt records a process started by stepID.
func (t *ProcessTable) Adopt(stepID string, p ports.Process) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, OwnedProcess{StepID: stepID, Process: p})
}

// Len returns the number of processes held.
func (t *ProcessTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Live returns the number of held processes that have not exited.
func (t *ProcessTable) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	live := 0
	for _, e := range t.entries {
		if !e.Process.Exited() {
			live++
		}
	}
	return live
}

// OwnedBy returns the processes started by stepID in start order.
func (t *ProcessTable) OwnedBy(stepID string) []ports.Process {
	t.mu.Lock()
	defer t.mu.Unlock()

	var procs []ports.Process
	for _, e := range t.entries {
		if e.StepID == stepID {
			procs = append(procs, e.Process)
		}
	}
	return procs
}

// Release empties the table and returns its processes, most recently started
// first, so dependents stop before the services they depend on.
func (t *ProcessTable) Release() []OwnedProcess {
	t.mu.Lock()
	defer t.mu.Unlock()

	released := make([]OwnedProcess, 0, len(t.entries))
	for i := len(t.entries) - 1; i >= 0; i-- {
		released = append(released, t.entries[i])
	}
	t.entries = nil
	return released
}
