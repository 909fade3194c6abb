package requirements_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/docsteps/internal/domain/failure"
	"github.com/felixgeelhaar/docsteps/internal/domain/manifest"
	"github.com/felixgeelhaar/docsteps/internal/domain/requirements"
	"github.com/felixgeelhaar/docsteps/internal/ports"
	"github.com/felixgeelhaar/docsteps/internal/testutil/mocks"
)

var version = []string{"--version"}

func TestChecker_PythonVersionSubstring(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddVersion("python", "Python 3.11.4\n")
	checker := requirements.NewChecker(runner)

	err := checker.Check(context.Background(), []manifest.Requirement{{Name: "python", Value: "3.11"}})
	require.NoError(t, err)

	err = checker.Check(context.Background(), []manifest.Requirement{{Name: "python", Value: "3.12"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrRequirementUnmet)
	assert.Contains(t, err.Error(), "3.12")
	assert.Contains(t, err.Error(), "Python 3.11.4")
}

func TestChecker_PythonFallsBackToPython3(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddError("python", version, errors.New(`exec: "python": executable file not found in $PATH`))
	runner.AddVersion("python3", "Python 3.12.1")
	checker := requirements.NewChecker(runner)

	err := checker.Check(context.Background(), []manifest.Requirement{{Name: "python", Value: ">=3.10"}})

	require.NoError(t, err)
	calls := runner.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "python3", calls[1].Command)
}

func TestChecker_VersionOnStderr(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult("python", version, ports.CommandResult{Stderr: "Python 2.7.18"})
	checker := requirements.NewChecker(runner)

	err := checker.Check(context.Background(), []manifest.Requirement{{Name: "python", Value: "2.7"}})
	assert.NoError(t, err)
}

func TestChecker_BooleanTools(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddVersion("docker", "Docker version 24.0.7")
	runner.AddResult("pip", version, ports.CommandResult{ExitCode: 127})
	checker := requirements.NewChecker(runner)
	ctx := context.Background()

	require.NoError(t, checker.Check(ctx, []manifest.Requirement{{Name: "docker", Value: "true"}}))

	// false means the tool is not required; nothing is executed.
	before := len(runner.Calls())
	require.NoError(t, checker.Check(ctx, []manifest.Requirement{{Name: "kubectl", Value: "false"}}))
	assert.Len(t, runner.Calls(), before)

	err := checker.Check(ctx, []manifest.Requirement{{Name: "pip", Value: "true"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrRequirementUnmet)
	assert.Contains(t, err.Error(), "pip is required but not installed")
}

func TestChecker_BrokenToolIsReportedDistinctly(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult("docker", version, ports.CommandResult{ExitCode: 1, Stderr: "daemon not running"})

	err := requirements.NewChecker(runner).Check(context.Background(), []manifest.Requirement{{Name: "docker", Value: "true"}})

	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrRequirementUnmet)
	assert.Contains(t, err.Error(), "version could not be determined")
}

func TestChecker_StopsAtFirstUnmet(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddError("docker", version, errors.New("not found"))
	checker := requirements.NewChecker(runner)

	err := checker.Check(context.Background(), []manifest.Requirement{
		{Name: "docker", Value: "true"},
		{Name: "node", Value: "20"},
	})

	require.Error(t, err)
	assert.Equal(t, "docker", failureDetail(t, err, "requirement"))
	assert.Len(t, runner.Calls(), 1)
}

func TestChecker_DecimalVersionFromReadme(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddVersion("python", "Python 3.12.1")
	checker := requirements.NewChecker(runner)

	m, err := manifest.ParseYAML([]byte("requirements:\n  python: 3.10\nsteps: []\n"))
	require.NoError(t, err)

	err = checker.Check(context.Background(), m.Requirements())

	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrRequirementUnmet)
	assert.Contains(t, err.Error(), "3.10")
}

func TestChecker_NumericValueIsNotAFlag(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddVersion("node", "v20.0.0")
	checker := requirements.NewChecker(runner)

	err := checker.Check(context.Background(), []manifest.Requirement{{Name: "node", Value: "1"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "version mismatch")

	require.NoError(t, checker.Check(context.Background(), []manifest.Requirement{{Name: "node", Value: "0"}}))
}

func TestChecker_EmptyRequirements(t *testing.T) {
	checker := requirements.NewChecker(mocks.NewCommandRunner())
	assert.NoError(t, checker.Check(context.Background(), nil))
}

func TestSatisfies(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    string
		ok      bool
		wantErr bool
	}{
		{name: "substring", output: "Python 3.11.4", want: "3.11", ok: true},
		{name: "substring miss", output: "Python 3.11.4", want: "3.10", ok: false},
		{name: "minimum met", output: "Python 3.11.4", want: ">=3.10", ok: true},
		{name: "minimum equal", output: "Python 3.10.0", want: ">= 3.10", ok: true},
		{name: "minimum missed", output: "Python 3.9.18", want: ">=3.10", ok: false},
		{name: "below", output: "go version go1.21.5 linux/amd64", want: "<1.22", ok: true},
		{name: "greater", output: "Docker version 24.0.7, build afdd53b", want: ">24", ok: true},
		{name: "exact", output: "v20.11.0", want: "=20.11.0", ok: true},
		{name: "no version in output", output: "unknown", want: ">=1", wantErr: true},
		{name: "bad constraint", output: "1.0", want: ">=abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := requirements.Satisfies(tt.output, tt.want)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func failureDetail(t *testing.T, err error, key string) string {
	t.Helper()
	var fe *failure.Error
	require.ErrorAs(t, err, &fe)
	return fe.Detail(key)
}
