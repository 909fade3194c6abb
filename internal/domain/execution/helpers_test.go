package execution_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/docsteps/internal/domain/execution"
	"github.com/felixgeelhaar/docsteps/internal/domain/failure"
	"github.com/felixgeelhaar/docsteps/internal/domain/manifest"
	"github.com/felixgeelhaar/docsteps/internal/testutil/mocks"
)

// fakeProber reports every port in ready as open and every other port as
// timing out. URL checks fail with urlErr when it is set.
type fakeProber struct {
	mu     sync.Mutex
	ready  map[int]bool
	urlErr error
	ports  []int
	urls   []string

	// onAwait, when set, runs before each port is polled.
	onAwait func(port int)
}

func newFakeProber(ready ...int) *fakeProber {
	p := &fakeProber{ready: make(map[int]bool)}
	for _, port := range ready {
		p.ready[port] = true
	}
	return p
}

func (p *fakeProber) AwaitPort(_ context.Context, port int, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ports = append(p.ports, port)
	if p.onAwait != nil {
		p.onAwait(port)
	}
	if p.ready[port] {
		return nil
	}
	return failure.NewReadinessTimeout(port, timeout, nil)
}

func (p *fakeProber) CheckURL(_ context.Context, url string, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.urls = append(p.urls, url)
	return p.urlErr
}

func (p *fakeProber) awaited() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.ports...)
}

// harness wires the engine to fakes.
type harness struct {
	shell    *mocks.ShellRunner
	prober   *fakeProber
	table    *execution.ProcessTable
	executor *execution.Executor
	cleanup  *execution.Cleanup
	events   *eventRecorder
}

func newHarness(ready ...int) *harness {
	h := &harness{
		shell:  mocks.NewShellRunner(),
		prober: newFakeProber(ready...),
		table:  execution.NewProcessTable(),
		events: &eventRecorder{},
	}
	cfg := execution.Config{PortTimeout: 2 * time.Second, GracePeriod: 10 * time.Millisecond}
	h.executor = execution.NewExecutor(h.shell, h.prober, h.table, cfg)
	h.cleanup = execution.NewCleanup(h.shell, h.table, cfg)
	return h
}

func (h *harness) scheduler() *execution.Scheduler {
	return execution.NewScheduler(h.executor, execution.WithObserver(h.events))
}

type eventRecorder struct {
	mu     sync.Mutex
	events []execution.Event
}

func (r *eventRecorder) OnEvent(e execution.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// trace renders step events as "type:id" and phase events as "phase:name".
func (r *eventRecorder) trace() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		if e.Type == execution.EventPhaseChanged {
			out = append(out, "phase:"+string(e.Phase))
			continue
		}
		out = append(out, string(e.Type)+":"+e.StepID)
	}
	return out
}

func build(t *testing.T, b *manifest.Builder) *manifest.Manifest {
	t.Helper()
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func stepOf(t *testing.T, m *manifest.Manifest, id string) manifest.Step {
	t.Helper()
	step, ok := m.Get(manifest.MustNewStepID(id))
	require.True(t, ok, "step %s not declared", id)
	return step
}
