// Package app wires the docsteps engine: manifest loading, readiness probing,
// process execution, requirements checks and the run lifecycle.
package app

import (
	"context"

	"github.com/felixgeelhaar/docsteps/internal/adapters/command"
	"github.com/felixgeelhaar/docsteps/internal/domain/execution"
	"github.com/felixgeelhaar/docsteps/internal/domain/manifest"
	"github.com/felixgeelhaar/docsteps/internal/domain/readiness"
	"github.com/felixgeelhaar/docsteps/internal/domain/requirements"
	"github.com/felixgeelhaar/docsteps/internal/ports"
)

// Options configures an Engine.
type Options struct {
	Execution        execution.Config
	Readiness        readiness.Config
	SkipRequirements bool
	// WorkDir is the directory commands run in. Empty means the current directory.
	WorkDir string
}

// DefaultOptions returns the default engine options.
func DefaultOptions() Options {
	return Options{
		Execution: execution.DefaultConfig(),
		Readiness: readiness.DefaultConfig(),
	}
}

// Engine runs manifests against the real shell, network and toolchain.
type Engine struct {
	opts   Options
	shell  ports.ShellRunner
	runner ports.CommandRunner
	logger ports.Logger
}

// New creates an Engine backed by the host shell.
func New(opts Options, logger ports.Logger) *Engine {
	if logger == nil {
		logger = ports.Discard
	}
	shell := command.NewShellRunner()
	if opts.WorkDir != "" {
		shell = shell.WithDir(opts.WorkDir)
	}
	return &Engine{
		opts:   opts,
		shell:  shell,
		runner: command.NewRealRunner(),
		logger: logger,
	}
}

// WithShell replaces the shell runner, e.g. with a fake in tests.
func (e *Engine) WithShell(shell ports.ShellRunner) *Engine {
	e.shell = shell
	return e
}

// WithCommandRunner replaces the runner used for requirement probes.
func (e *Engine) WithCommandRunner(runner ports.CommandRunner) *Engine {
	e.runner = runner
	return e
}

// Options returns the engine options.
func (e *Engine) Options() Options {
	return e.opts
}

// Plan returns the steps in the order a fully successful run executes them.
func (e *Engine) Plan(m *manifest.Manifest) ([]manifest.Step, error) {
	return m.ExecutionOrder()
}

// Run executes m: requirements, steps, then cleanup. Events are reported to
// observer when it is non-nil. Every run gets its own process table, so
// cleanup only ever touches processes this run started.
func (e *Engine) Run(ctx context.Context, m *manifest.Manifest, observer execution.Observer) (*execution.Report, error) {
	table := execution.NewProcessTable()
	prober := readiness.NewProber(e.opts.Readiness, readiness.WithLogger(e.logger))

	executor := execution.NewExecutor(e.shell, prober, table, e.opts.Execution,
		execution.WithExecutorLogger(e.logger))

	schedulerOpts := []execution.SchedulerOption{execution.WithSchedulerLogger(e.logger)}
	runnerOpts := []execution.RunnerOption{
		execution.WithRunnerLogger(e.logger),
		execution.WithSkipRequirements(e.opts.SkipRequirements),
	}
	if observer != nil {
		schedulerOpts = append(schedulerOpts, execution.WithObserver(observer))
		runnerOpts = append(runnerOpts, execution.WithRunObserver(observer))
	}

	scheduler := execution.NewScheduler(executor, schedulerOpts...)
	cleanup := execution.NewCleanup(e.shell, table, e.opts.Execution,
		execution.WithCleanupLogger(e.logger))
	checker := requirements.NewChecker(e.runner, requirements.WithLogger(e.logger))

	return execution.NewRunner(checker, scheduler, cleanup, runnerOpts...).Run(ctx, m)
}
