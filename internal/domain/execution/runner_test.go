package execution_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/docsteps/internal/domain/execution"
	"github.com/felixgeelhaar/docsteps/internal/domain/failure"
	"github.com/felixgeelhaar/docsteps/internal/domain/manifest"
	"github.com/felixgeelhaar/docsteps/internal/ports"
)

type stubChecker struct {
	err   error
	calls int
}

func (c *stubChecker) Check(context.Context, []manifest.Requirement) error {
	c.calls++
	return c.err
}

func (h *harness) runner(checker execution.RequirementChecker, opts ...execution.RunnerOption) *execution.Runner {
	opts = append([]execution.RunnerOption{execution.WithRunObserver(h.events)}, opts...)
	return execution.NewRunner(checker, h.scheduler(), h.cleanup, opts...)
}

func countCommand(commands []string, command string) int {
	n := 0
	for _, c := range commands {
		if c == command {
			n++
		}
	}
	return n
}

func TestRunner_ZeroStepsStillCleansUp(t *testing.T) {
	h := newHarness()
	m := build(t, manifest.NewBuilder().AddCleanup("rm -f /tmp/docsteps.pid"))

	report, err := h.runner(&stubChecker{}).Run(context.Background(), m)

	require.NoError(t, err)
	assert.True(t, report.Succeeded())
	assert.Equal(t, execution.PhaseSucceeded, report.Phase)
	assert.Equal(t, []string{"rm -f /tmp/docsteps.pid"}, h.shell.Commands())
	assert.Equal(t, 1, report.Cleanup.CommandsRun)
	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestRunner_PhasesOnSuccess(t *testing.T) {
	h := newHarness()
	m := build(t, manifest.NewBuilder().AddStep(manifest.StepSpec{ID: "a", Commands: []string{"true"}}))

	_, err := h.runner(&stubChecker{}).Run(context.Background(), m)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"phase:checking",
		"phase:scheduling",
		"step_started:a",
		"step_finished:a",
		"phase:cleaning",
		"phase:succeeded",
	}, h.events.trace())
}

func TestRunner_FailingStepCleansUpOnce(t *testing.T) {
	h := newHarness(6379)
	h.shell.AddResult("pytest", ports.CommandResult{ExitCode: 1, Stderr: "1 failed"})
	m := build(t, manifest.NewBuilder().
		AddCleanup("docker rm -f redis").
		AddStep(manifest.StepSpec{ID: "redis", Background: true, Commands: []string{"redis-server"}, ReadinessPorts: []int{6379}}).
		AddStep(manifest.StepSpec{ID: "test", DependsOn: "redis", Commands: []string{"pytest"}}).
		AddStep(manifest.StepSpec{ID: "report", DependsOn: "test", Commands: []string{"coverage report"}}))

	report, err := h.runner(&stubChecker{}).Run(context.Background(), m)

	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrCommandFailed)
	assert.Equal(t, execution.PhaseFailed, report.Phase)
	assert.Equal(t, "test", report.FailedStep())
	assert.Equal(t, 1, countCommand(h.shell.Commands(), "docker rm -f redis"))
	assert.Zero(t, countCommand(h.shell.Commands(), "coverage report"))
	assert.Equal(t, 1, report.Cleanup.Terminated)
	assert.Zero(t, h.table.Len())
	assert.Equal(t, 1, report.Counts()[execution.StatusNotRun])
	assert.Equal(t, []string{
		"phase:checking",
		"phase:scheduling",
		"step_started:redis",
		"step_finished:redis",
		"step_started:test",
		"step_failed:test",
		"phase:cleaning",
		"phase:failed",
	}, h.events.trace())
}

func TestRunner_ReadinessTimeoutTerminatesOtherProcesses(t *testing.T) {
	h := newHarness(6379)
	m := build(t, manifest.NewBuilder().
		AddStep(manifest.StepSpec{ID: "redis", Background: true, Commands: []string{"redis-server"}, ReadinessPorts: []int{6379}}).
		AddStep(manifest.StepSpec{ID: "web", Background: true, Commands: []string{"serve --port 9999"}, ReadinessPorts: []int{9999}}))

	report, err := h.runner(&stubChecker{}).Run(context.Background(), m)

	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrReadinessTimeout)
	assert.Contains(t, err.Error(), "9999")
	assert.Equal(t, "web", report.FailedStep())
	for _, p := range h.shell.Processes() {
		assert.True(t, p.Exited(), "process %q still running", p.Command())
	}
	assert.Equal(t, 2, report.Cleanup.Terminated)
}

func TestRunner_RequirementFailureSkipsSteps(t *testing.T) {
	h := newHarness()
	checker := &stubChecker{err: failure.NewRequirementUnmet("docker", "docker is required but not found", nil)}
	m := build(t, manifest.NewBuilder().
		AddCleanup("docker rm -f redis").
		AddStep(manifest.StepSpec{ID: "a", Commands: []string{"docker run redis"}}))

	report, err := h.runner(checker).Run(context.Background(), m)

	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrRequirementUnmet)
	assert.Equal(t, execution.PhaseFailed, report.Phase)
	assert.Equal(t, []string{"docker rm -f redis"}, h.shell.Commands())
	require.Len(t, report.Steps, 1)
	assert.True(t, report.Steps[0].NotRun())
	assert.Empty(t, report.FailedStep())
}

func TestRunner_SkipRequirements(t *testing.T) {
	h := newHarness()
	checker := &stubChecker{err: failure.NewRequirementUnmet("docker", "missing", nil)}
	m := build(t, manifest.NewBuilder().AddStep(manifest.StepSpec{ID: "a", Commands: []string{"true"}}))

	report, err := h.runner(checker, execution.WithSkipRequirements(true)).Run(context.Background(), m)

	require.NoError(t, err)
	assert.True(t, report.Succeeded())
	assert.Zero(t, checker.calls)
}

func TestRunner_CanceledRunStillCleansUp(t *testing.T) {
	h := newHarness()
	m := build(t, manifest.NewBuilder().
		AddCleanup("cleanup").
		AddStep(manifest.StepSpec{ID: "a", Commands: []string{"true"}}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := h.runner(nil).Run(ctx, m)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, execution.PhaseFailed, report.Phase)
	assert.Equal(t, []string{"cleanup"}, h.shell.Commands())
}

func TestReport_JSON(t *testing.T) {
	h := newHarness()
	h.shell.AddResult("echo hi", ports.CommandResult{Stdout: "hi\n"})
	h.shell.AddResult("false", ports.CommandResult{ExitCode: 1})
	m := build(t, manifest.NewBuilder().
		AddStep(manifest.StepSpec{ID: "greet", Commands: []string{"echo hi"}}).
		AddStep(manifest.StepSpec{ID: "broken", Commands: []string{"false"}}))

	report, runErr := h.runner(nil).Run(context.Background(), m)
	require.Error(t, runErr)

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded struct {
		RunID     string `json:"run_id"`
		Phase     string `json:"phase"`
		Succeeded bool   `json:"succeeded"`
		Error     struct {
			Kind string `json:"kind"`
			Step string `json:"step"`
		} `json:"error"`
		Steps []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Stdout string `json:"stdout"`
		} `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, report.RunID, decoded.RunID)
	assert.Equal(t, "failed", decoded.Phase)
	assert.False(t, decoded.Succeeded)
	assert.Equal(t, "COMMAND_FAILED", decoded.Error.Kind)
	assert.Equal(t, "broken", decoded.Error.Step)
	require.Len(t, decoded.Steps, 2)
	assert.Equal(t, "done", decoded.Steps[0].Status)
	assert.Equal(t, "hi\n", decoded.Steps[0].Stdout)
	assert.Equal(t, "failed", decoded.Steps[1].Status)
}
