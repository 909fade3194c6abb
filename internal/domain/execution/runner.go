package execution

import (
	"context"
	"time"

	"github.com/felixgeelhaar/statekit"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/docsteps/internal/domain/manifest"
	"github.com/felixgeelhaar/docsteps/internal/ports"
)

// Phase is the lifecycle state of a run.
type Phase string

// State machine state names.
const (
	stateIdle       = "idle"
	stateChecking   = "checking"
	stateScheduling = "scheduling"
	stateCleaning   = "cleaning"
	stateSucceeded  = "succeeded"
	stateFailed     = "failed"
)

const (
	// PhaseIdle indicates the run has not started.
	PhaseIdle Phase = stateIdle
	// PhaseChecking indicates preflight requirements are being verified.
	PhaseChecking Phase = stateChecking
	// PhaseScheduling indicates steps are executing.
	PhaseScheduling Phase = stateScheduling
	// PhaseCleaning indicates cleanup is in progress.
	PhaseCleaning Phase = stateCleaning
	// PhaseSucceeded indicates every step completed.
	PhaseSucceeded Phase = stateSucceeded
	// PhaseFailed indicates the run aborted.
	PhaseFailed Phase = stateFailed
)

// Event types for the run state machine.
const (
	runEventCheck    = "CHECK"
	runEventChecked  = "CHECKED"
	runEventFinished = "FINISHED"
	runEventAbort    = "ABORT"
	runEventSucceed  = "SUCCEED"
	runEventFail     = "FAIL"
	runEventReset    = "RESET"
)

// RequirementChecker verifies preflight requirements.
type RequirementChecker interface {
	Check(ctx context.Context, reqs []manifest.Requirement) error
}

// runContext is the statekit context of a run.
type runContext struct {
	StartedAt  time.Time
	FinishedAt time.Time
}

// Runner drives a run: requirements check, scheduling, then cleanup, which
// always happens once the run has started.
type Runner struct {
	checker          RequirementChecker
	scheduler        *Scheduler
	cleanup          *Cleanup
	observer         Observer
	logger           ports.Logger
	skipRequirements bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunObserver sets the Observer notified of phase changes.
func WithRunObserver(o Observer) RunnerOption {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithRunnerLogger sets the logger used when the context carries none.
func WithRunnerLogger(logger ports.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithSkipRequirements disables the preflight requirements check.
func WithSkipRequirements(skip bool) RunnerOption {
	return func(r *Runner) {
		r.skipRequirements = skip
	}
}

// NewRunner creates a Runner.
func NewRunner(checker RequirementChecker, scheduler *Scheduler, cleanup *Cleanup, opts ...RunnerOption) *Runner {
	r := &Runner{
		checker:   checker,
		scheduler: scheduler,
		cleanup:   cleanup,
		observer:  nopObserver{},
		logger:    ports.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// buildRunMachine constructs the run lifecycle machine.
// The closures write through rc so the Runner sees the timestamps.
func buildRunMachine(rc *runContext) (*statekit.Interpreter[runContext], error) {
	machine, err := statekit.NewMachine[runContext]("docsteps-run").
		WithInitial(stateIdle).
		WithContext(*rc).
		WithAction("markStarted", func(_ *runContext, _ statekit.Event) {
			rc.StartedAt = time.Now()
		}).
		WithAction("markFinished", func(_ *runContext, _ statekit.Event) {
			rc.FinishedAt = time.Now()
		}).
		State(stateIdle).
		On(runEventCheck).Target(stateChecking).Done().
		State(stateChecking).
		OnEntry("markStarted").
		On(runEventChecked).Target(stateScheduling).
		On(runEventAbort).Target(stateCleaning).Done().
		State(stateScheduling).
		On(runEventFinished).Target(stateCleaning).
		On(runEventAbort).Target(stateCleaning).Done().
		State(stateCleaning).
		On(runEventSucceed).Target(stateSucceeded).
		On(runEventFail).Target(stateFailed).Done().
		State(stateSucceeded).
		OnEntry("markFinished").
		On(runEventReset).Target(stateIdle).Done().
		State(stateFailed).
		OnEntry("markFinished").
		On(runEventReset).Target(stateIdle).Done().
		Build()

	if err != nil {
		return nil, err
	}

	return statekit.NewInterpreter(machine), nil
}

// Run executes the manifest and returns its report. The returned error is
// the first failure, also recorded in the report. Cleanup runs whatever the
// outcome, including requirement failures and cancellation.
func (r *Runner) Run(ctx context.Context, m *manifest.Manifest) (*Report, error) {
	rc := &runContext{}
	interp, err := buildRunMachine(rc)
	if err != nil {
		return nil, err
	}
	interp.Start()
	defer interp.Stop()

	report := &Report{RunID: uuid.NewString()}
	log := ports.LoggerFromContextOr(ctx, r.logger).With(ports.F("run", report.RunID))
	ctx = ports.ContextWithLogger(ctx, log)

	cleaned := false
	defer func() {
		if !cleaned {
			r.cleanup.Run(ctx, m)
		}
	}()

	r.send(interp, runEventCheck)
	report.StartedAt = rc.StartedAt
	if report.StartedAt.IsZero() {
		report.StartedAt = time.Now()
	}
	log.Info(ctx, "run started", ports.F("steps", m.Len()))

	runErr := r.checkRequirements(ctx, m)
	if runErr != nil {
		report.Steps = notRun(m)
		r.send(interp, runEventAbort)
	} else {
		r.send(interp, runEventChecked)
		report.Steps, runErr = r.scheduler.Run(ctx, m)
		if runErr != nil {
			r.send(interp, runEventAbort)
		} else {
			r.send(interp, runEventFinished)
		}
	}

	report.Cleanup = r.cleanup.Run(ctx, m)
	cleaned = true

	if runErr != nil {
		r.send(interp, runEventFail)
	} else {
		r.send(interp, runEventSucceed)
	}

	report.Phase = Phase(interp.State().Value)
	report.FinishedAt = rc.FinishedAt
	if report.FinishedAt.IsZero() {
		report.FinishedAt = time.Now()
	}
	report.Err = runErr

	if runErr != nil {
		log.Error(ctx, "run failed", ports.Err(runErr), ports.F("duration", report.Duration().String()))
	} else {
		log.Info(ctx, "run succeeded", ports.F("duration", report.Duration().String()))
	}

	return report, runErr
}

func (r *Runner) checkRequirements(ctx context.Context, m *manifest.Manifest) error {
	if r.skipRequirements || r.checker == nil {
		return nil
	}
	return r.checker.Check(ctx, m.Requirements())
}

func (r *Runner) send(interp *statekit.Interpreter[runContext], event string) {
	interp.Send(statekit.Event{Type: statekit.EventType(event)})
	r.observer.OnEvent(Event{
		Type:  EventPhaseChanged,
		Time:  time.Now(),
		Phase: Phase(interp.State().Value),
	})
}

func notRun(m *manifest.Manifest) []StepResult {
	results := make([]StepResult, 0, m.Len())
	for _, step := range m.Steps() {
		results = append(results, NewStepResult(step.ID(), StatusNotRun, nil))
	}
	return results
}
