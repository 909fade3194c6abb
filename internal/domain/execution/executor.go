package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/docsteps/internal/domain/failure"
	"github.com/felixgeelhaar/docsteps/internal/domain/manifest"
	"github.com/felixgeelhaar/docsteps/internal/ports"
)

// Prober checks that background services are ready.
type Prober interface {
	AwaitPort(ctx context.Context, port int, timeout time.Duration) error
	CheckURL(ctx context.Context, url string, expectedStatus int) error
}

// Executor runs the commands of a single step.
type Executor struct {
	shell  ports.ShellRunner
	prober Prober
	table  *ProcessTable
	cfg    Config
	logger ports.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorLogger sets the logger used when the context carries none.
func WithExecutorLogger(logger ports.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor creates an Executor. Background processes are handed to table.
func NewExecutor(shell ports.ShellRunner, prober Prober, table *ProcessTable, cfg Config, opts ...ExecutorOption) *Executor {
	e := &Executor{
		shell:  shell,
		prober: prober,
		table:  table,
		cfg:    cfg.withDefaults(),
		logger: ports.Discard,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs step's commands in order with the manifest environment.
//
// Foreground commands must exit 0. When the step declares expected output it
// must appear somewhere in the combined stdout of all its commands. Background commands are started and left running; their processes
// belong to the ProcessTable from then on. Once all commands are launched the
// readiness ports are polled in order and the readiness URL is checked.
// The first failure is returned, attributed to the step.
func (e *Executor) Execute(ctx context.Context, m *manifest.Manifest, step manifest.Step) (StepResult, error) {
	id := step.ID()
	log := ports.LoggerFromContextOr(ctx, e.logger).With(ports.Step(id.String()))
	start := time.Now()
	var pids []int

	fail := func(err error) (StepResult, error) {
		err = failure.AttachStep(err, id.String())
		return NewStepResult(id, StatusFailed, err).
			WithDuration(time.Since(start)).
			WithProcesses(pids), err
	}

	if step.HasDependency() && !m.Has(step.DependsOn()) {
		return fail(failure.NewMissingDependency(id.String(), step.DependsOn().String()))
	}

	env := m.Env()
	var stdout, stderr strings.Builder

	for _, command := range step.Commands() {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		if step.Background() {
			proc, err := e.shell.Start(ctx, command, env)
			if err != nil {
				return fail(failure.NewCommandFailed(command, err.Error(), -1).WithUnderlying(err))
			}
			e.table.Adopt(id.String(), proc)
			pids = append(pids, proc.Pid())
			log.Info(ctx, "started background command", ports.F("command", command), ports.F("pid", proc.Pid()))
			continue
		}

		log.Info(ctx, "running command", ports.F("command", command))
		result, err := e.runForeground(ctx, command, env)
		if err != nil {
			return fail(err)
		}
		stdout.WriteString(result.Stdout)
		stderr.WriteString(result.Stderr)

		if !result.Success() {
			return fail(failure.NewCommandFailed(command, result.Stderr, result.ExitCode))
		}
	}

	if want := step.ExpectedOutput(); want != "" && !step.Background() && !strings.Contains(stdout.String(), want) {
		return fail(failure.NewOutputMismatch(want, stdout.String()))
	}

	for _, port := range step.ReadinessPorts() {
		log.Info(ctx, "waiting for port", ports.F("port", port), ports.F("timeout", e.cfg.PortTimeout.String()))
		if err := e.prober.AwaitPort(ctx, port, e.cfg.PortTimeout); err != nil {
			return fail(err)
		}
	}

	if url := step.ReadinessURL(); url != "" {
		log.Info(ctx, "checking url", ports.F("url", url), ports.F("expected_status", step.ExpectedStatus()))
		if err := e.prober.CheckURL(ctx, url, step.ExpectedStatus()); err != nil {
			return fail(err)
		}
	}

	return NewStepResult(id, StatusDone, nil).
		WithDuration(time.Since(start)).
		WithOutput(stdout.String(), stderr.String()).
		WithProcesses(pids), nil
}

func (e *Executor) runForeground(ctx context.Context, command string, env map[string]string) (ports.CommandResult, error) {
	runCtx := ctx
	if e.cfg.CommandTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.CommandTimeout)
		defer cancel()
	}

	result, err := e.shell.Run(runCtx, command, env)
	if err == nil {
		return result, nil
	}

	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		msg := fmt.Sprintf("timed out after %s", e.cfg.CommandTimeout)
		return result, failure.NewCommandFailed(command, msg, -1).
			WithSuggestion("Raise --command-timeout or make the command finish sooner.")
	}
	return result, failure.NewCommandFailed(command, err.Error(), -1).WithUnderlying(err)
}
