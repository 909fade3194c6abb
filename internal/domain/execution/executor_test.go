package execution_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/docsteps/internal/domain/execution"
	"github.com/felixgeelhaar/docsteps/internal/domain/failure"
	"github.com/felixgeelhaar/docsteps/internal/domain/manifest"
	"github.com/felixgeelhaar/docsteps/internal/ports"
)

func TestExecutor_ForegroundSuccess(t *testing.T) {
	h := newHarness()
	h.shell.AddResult("sleep 0; echo hi", ports.CommandResult{Stdout: "hi\n"})
	m := build(t, manifest.NewBuilder().
		SetEnv("GREETING", "hi").
		AddStep(manifest.StepSpec{ID: "greet", Commands: []string{"sleep 0; echo hi"}, ExpectedOutput: "hi"}))

	result, err := h.executor.Execute(context.Background(), m, stepOf(t, m, "greet"))

	require.NoError(t, err)
	assert.Equal(t, execution.StatusDone, result.Status())
	assert.Equal(t, "greet", result.StepID().String())
	assert.Equal(t, "hi\n", result.Stdout())
	assert.False(t, result.Background())

	calls := h.shell.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]string{"GREETING": "hi"}, calls[0].Env)
	assert.False(t, calls[0].Background)
}

func TestExecutor_CommandFailedStopsStep(t *testing.T) {
	h := newHarness()
	h.shell.AddResult("make build", ports.CommandResult{ExitCode: 2, Stderr: "no rule to make target\n"})
	m := build(t, manifest.NewBuilder().
		AddStep(manifest.StepSpec{ID: "build", Commands: []string{"make build", "make test"}}))

	result, err := h.executor.Execute(context.Background(), m, stepOf(t, m, "build"))

	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrCommandFailed)
	assert.Equal(t, "build", failure.StepOf(err))
	assert.Contains(t, err.Error(), "code 2")
	assert.Equal(t, execution.StatusFailed, result.Status())
	assert.Equal(t, []string{"make build"}, h.shell.Commands())

	var fe *failure.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "no rule to make target", fe.Detail("stderr"))
}

func TestExecutor_SpawnError(t *testing.T) {
	h := newHarness()
	h.shell.AddError("broken", errors.New("fork/exec /bin/sh: no such file or directory"))
	m := build(t, manifest.NewBuilder().AddStep(manifest.StepSpec{ID: "s", Commands: []string{"broken"}}))

	_, err := h.executor.Execute(context.Background(), m, stepOf(t, m, "s"))

	assert.ErrorIs(t, err, failure.ErrCommandFailed)
	assert.Contains(t, err.Error(), "no such file")
}

func TestExecutor_OutputMismatch(t *testing.T) {
	h := newHarness()
	h.shell.AddResult("echo bye", ports.CommandResult{Stdout: "bye\n"})
	m := build(t, manifest.NewBuilder().
		AddStep(manifest.StepSpec{ID: "greet", Commands: []string{"echo bye"}, ExpectedOutput: "hello"}))

	_, err := h.executor.Execute(context.Background(), m, stepOf(t, m, "greet"))

	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrOutputMismatch)
	assert.Contains(t, err.Error(), `"hello"`)
}

func TestExecutor_ExpectedOutputMatchesAnyCommand(t *testing.T) {
	h := newHarness()
	h.shell.AddResult("mkdir -p out", ports.CommandResult{})
	h.shell.AddResult("echo built", ports.CommandResult{Stdout: "built\n"})
	h.shell.AddResult("ls out", ports.CommandResult{})
	m := build(t, manifest.NewBuilder().AddStep(manifest.StepSpec{
		ID:             "build",
		Commands:       []string{"mkdir -p out", "echo built", "ls out"},
		ExpectedOutput: "built",
	}))

	result, err := h.executor.Execute(context.Background(), m, stepOf(t, m, "build"))

	require.NoError(t, err)
	assert.Equal(t, execution.StatusDone, result.Status())
	assert.Equal(t, "built\n", result.Stdout())
	assert.Equal(t, []string{"mkdir -p out", "echo built", "ls out"}, h.shell.Commands())
}

func TestExecutor_OutputMismatchChecksWholeStep(t *testing.T) {
	h := newHarness()
	h.shell.AddResult("echo one", ports.CommandResult{Stdout: "one\n"})
	h.shell.AddResult("echo two", ports.CommandResult{Stdout: "two\n"})
	m := build(t, manifest.NewBuilder().AddStep(manifest.StepSpec{
		ID:             "count",
		Commands:       []string{"echo one", "echo two"},
		ExpectedOutput: "three",
	}))

	_, err := h.executor.Execute(context.Background(), m, stepOf(t, m, "count"))

	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrOutputMismatch)
	assert.Equal(t, []string{"echo one", "echo two"}, h.shell.Commands(), "every command runs before output is checked")

	var fe *failure.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "one\ntwo", fe.Detail("actual"))
}

func TestExecutor_BackgroundPortsAwaitedAfterAllCommandsStart(t *testing.T) {
	h := newHarness(8080, 8081)
	var startedAtAwait []int
	h.prober.onAwait = func(int) {
		startedAtAwait = append(startedAtAwait, len(h.shell.Calls()))
	}
	m := build(t, manifest.NewBuilder().AddStep(manifest.StepSpec{
		ID:             "services",
		Background:     true,
		Commands:       []string{"api --port 8080", "worker", "admin --port 8081"},
		ReadinessPorts: []int{8080, 8081},
	}))

	result, err := h.executor.Execute(context.Background(), m, stepOf(t, m, "services"))

	require.NoError(t, err)
	assert.Len(t, result.Pids(), 3)
	assert.Equal(t, []int{8080, 8081}, h.prober.awaited())
	assert.Equal(t, []int{3, 3}, startedAtAwait)
}

func TestExecutor_BackgroundPortTimeoutAfterAllCommandsStart(t *testing.T) {
	h := newHarness(8080)
	m := build(t, manifest.NewBuilder().AddStep(manifest.StepSpec{
		ID:             "services",
		Background:     true,
		Commands:       []string{"api --port 8080", "admin --port 8081"},
		ReadinessPorts: []int{8080, 8081},
	}))

	result, err := h.executor.Execute(context.Background(), m, stepOf(t, m, "services"))

	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrReadinessTimeout)
	assert.Contains(t, err.Error(), "8081")
	assert.Len(t, result.Pids(), 2)
	assert.Equal(t, 2, h.table.Live())
}

func TestExecutor_BackgroundAdoptsProcessesAndAwaitsPorts(t *testing.T) {
	h := newHarness(6379, 6380)
	m := build(t, manifest.NewBuilder().AddStep(manifest.StepSpec{
		ID:             "redis",
		Background:     true,
		Commands:       []string{"redis-server --port 6379", "redis-server --port 6380"},
		ReadinessPorts: []int{6379, 6380},
	}))

	result, err := h.executor.Execute(context.Background(), m, stepOf(t, m, "redis"))

	require.NoError(t, err)
	assert.True(t, result.Background())
	assert.Len(t, result.Pids(), 2)
	assert.Equal(t, 2, h.table.Len())
	assert.Equal(t, 2, h.table.Live())
	assert.Len(t, h.table.OwnedBy("redis"), 2)
	assert.Equal(t, []int{6379, 6380}, h.prober.awaited())
	for _, call := range h.shell.Calls() {
		assert.True(t, call.Background)
	}
}

func TestExecutor_ReadinessTimeoutKeepsProcessForCleanup(t *testing.T) {
	h := newHarness()
	m := build(t, manifest.NewBuilder().AddStep(manifest.StepSpec{
		ID:             "server",
		Background:     true,
		Commands:       []string{"python -m http.server 9999"},
		ReadinessPorts: []int{9999},
	}))

	_, err := h.executor.Execute(context.Background(), m, stepOf(t, m, "server"))

	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrReadinessTimeout)
	assert.Contains(t, err.Error(), "9999")
	assert.Equal(t, "server", failure.StepOf(err))
	assert.Equal(t, 1, h.table.Live())
}

func TestExecutor_StartErrorIsCommandFailed(t *testing.T) {
	h := newHarness()
	h.shell.AddStartError("server", errors.New("too many open files"))
	m := build(t, manifest.NewBuilder().
		AddStep(manifest.StepSpec{ID: "s", Background: true, Commands: []string{"server"}}))

	_, err := h.executor.Execute(context.Background(), m, stepOf(t, m, "s"))

	assert.ErrorIs(t, err, failure.ErrCommandFailed)
	assert.Zero(t, h.table.Len())
}

func TestExecutor_URLCheck(t *testing.T) {
	h := newHarness(5000)
	h.prober.urlErr = failure.NewUnexpectedStatus("http://localhost:5000/health", 200, 503)
	m := build(t, manifest.NewBuilder().AddStep(manifest.StepSpec{
		ID:             "app",
		Background:     true,
		Commands:       []string{"python app.py"},
		ReadinessPorts: []int{5000},
		ReadinessURL:   "http://localhost:5000/health",
		ExpectedStatus: 200,
	}))

	_, err := h.executor.Execute(context.Background(), m, stepOf(t, m, "app"))

	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrUnexpectedStatus)
	assert.Equal(t, "app", failure.StepOf(err))
	assert.Equal(t, []string{"http://localhost:5000/health"}, h.prober.urls)
}

func TestExecutor_URLCheckOnForegroundStep(t *testing.T) {
	h := newHarness()
	m := build(t, manifest.NewBuilder().AddStep(manifest.StepSpec{
		ID:           "compose",
		Commands:     []string{"docker compose up -d"},
		ReadinessURL: "http://localhost:8080/",
	}))

	_, err := h.executor.Execute(context.Background(), m, stepOf(t, m, "compose"))

	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:8080/"}, h.prober.urls)
}

func TestExecutor_DependencyMissingFromManifest(t *testing.T) {
	h := newHarness()
	full := build(t, manifest.NewBuilder().
		AddStep(manifest.StepSpec{ID: "db", Commands: []string{"true"}}).
		AddStep(manifest.StepSpec{ID: "app", DependsOn: "db", Commands: []string{"true"}}))
	other := build(t, manifest.NewBuilder().
		AddStep(manifest.StepSpec{ID: "lint", Commands: []string{"true"}}))

	_, err := h.executor.Execute(context.Background(), other, stepOf(t, full, "app"))

	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrManifestInvalid)
	assert.Empty(t, h.shell.Calls())
}

// blockingShell blocks foreground commands until their context ends.
type blockingShell struct {
	ports.ShellRunner
}

func (blockingShell) Run(ctx context.Context, _ string, _ map[string]string) (ports.CommandResult, error) {
	<-ctx.Done()
	return ports.CommandResult{ExitCode: -1}, ctx.Err()
}

func TestExecutor_CommandTimeout(t *testing.T) {
	cfg := execution.Config{CommandTimeout: 50 * time.Millisecond}
	executor := execution.NewExecutor(blockingShell{}, newFakeProber(), execution.NewProcessTable(), cfg)
	m := build(t, manifest.NewBuilder().AddStep(manifest.StepSpec{ID: "hang", Commands: []string{"sleep 60"}}))

	start := time.Now()
	_, err := executor.Execute(context.Background(), m, stepOf(t, m, "hang"))

	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrCommandFailed)
	assert.Contains(t, err.Error(), "hang")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecutor_Canceled(t *testing.T) {
	executor := execution.NewExecutor(blockingShell{}, newFakeProber(), execution.NewProcessTable(), execution.DefaultConfig())
	m := build(t, manifest.NewBuilder().AddStep(manifest.StepSpec{ID: "hang", Commands: []string{"sleep 60"}}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := executor.Execute(ctx, m, stepOf(t, m, "hang"))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, failure.KindOf(err))
}
