package execution

import (
	"context"
	"time"

	"github.com/felixgeelhaar/docsteps/internal/domain/failure"
	"github.com/felixgeelhaar/docsteps/internal/domain/manifest"
	"github.com/felixgeelhaar/docsteps/internal/ports"
)

// StepExecutor runs one step of a manifest.
type StepExecutor interface {
	Execute(ctx context.Context, m *manifest.Manifest, step manifest.Step) (StepResult, error)
}

// Scheduler runs the steps of a manifest in dependency order.
type Scheduler struct {
	executor StepExecutor
	observer Observer
	logger   ports.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithObserver sets the Observer notified of step transitions.
func WithObserver(o Observer) SchedulerOption {
	return func(s *Scheduler) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithSchedulerLogger sets the logger used when the context carries none.
func WithSchedulerLogger(logger ports.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler creates a Scheduler.
func NewScheduler(executor StepExecutor, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		executor: executor,
		observer: nopObserver{},
		logger:   ports.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes every step once, in repeated passes over the declaration
// order. A step is runnable when it has not run yet and its dependency, if
// any, is done. A pass that runs nothing means the remaining steps can never
// run and yields SchedulingStalled.
//
// The first failure stops the run; steps already done are kept as they are.
// Results are returned in declaration order, with StatusNotRun for steps that
// never started.
func (s *Scheduler) Run(ctx context.Context, m *manifest.Manifest) ([]StepResult, error) {
	log := ports.LoggerFromContextOr(ctx, s.logger)
	steps := m.Steps()

	status := make(map[string]StepStatus, len(steps))
	results := make(map[string]StepResult, len(steps))
	for _, step := range steps {
		status[step.ID().String()] = StatusPending
	}

	collect := func() []StepResult {
		out := make([]StepResult, 0, len(steps))
		for _, step := range steps {
			if r, ok := results[step.ID().String()]; ok {
				out = append(out, r)
				continue
			}
			out = append(out, NewStepResult(step.ID(), StatusNotRun, nil))
		}
		return out
	}

	for completed := 0; completed < len(steps); {
		progressed := false

		for _, step := range steps {
			id := step.ID().String()
			if status[id] != StatusPending {
				continue
			}
			if step.HasDependency() && status[step.DependsOn().String()] != StatusDone {
				continue
			}

			if err := ctx.Err(); err != nil {
				log.Warn(ctx, "run canceled", ports.Step(id), ports.Err(err))
				return collect(), err
			}

			status[id] = StatusRunning
			log.Info(ctx, "step started", ports.Step(id), ports.F("kind", step.Kind()))
			s.emit(Event{Type: EventStepStarted, StepID: id})

			result, err := s.executor.Execute(ctx, m, step)
			result = settle(step, result, err)
			results[id] = result

			if err != nil {
				status[id] = StatusFailed
				log.Error(ctx, "step failed", ports.Step(id), ports.F("kind", failure.KindOf(err)), ports.Err(err))
				s.emit(Event{Type: EventStepFailed, StepID: id, Result: result, Err: err})
				return collect(), err
			}

			status[id] = StatusDone
			completed++
			progressed = true
			log.Info(ctx, "step finished", ports.Step(id), ports.F("duration", result.Duration().Round(time.Millisecond).String()))
			s.emit(Event{Type: EventStepFinished, StepID: id, Result: result})
		}

		if !progressed {
			var pending []string
			for _, step := range steps {
				if status[step.ID().String()] == StatusPending {
					pending = append(pending, step.ID().String())
				}
			}
			err := failure.NewSchedulingStalled(pending)
			log.Error(ctx, "scheduling stalled", ports.Err(err))
			return collect(), err
		}
	}

	return collect(), nil
}

// settle makes a step result consistent with the step it belongs to and the
// error the executor returned.
func settle(step manifest.Step, r StepResult, err error) StepResult {
	r.stepID = step.ID()
	switch {
	case err != nil:
		r.status = StatusFailed
		r.err = err
	case r.status == "":
		r.status = StatusDone
	}
	return r
}

func (s *Scheduler) emit(e Event) {
	e.Time = time.Now()
	s.observer.OnEvent(e)
}
