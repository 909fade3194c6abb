package manifest

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/docsteps/internal/domain/failure"
)

// StepSpec is the raw description of a step as produced by a manifest source.
type StepSpec struct {
	ID             string
	Commands       []string
	DependsOn      string
	Background     bool
	ReadinessPorts []int
	ReadinessURL   string
	ExpectedStatus int
	ExpectedOutput string
}

// Step is one declared unit of work. It is immutable once built.
type Step struct {
	id             StepID
	commands       []string
	dependsOn      StepID
	background     bool
	readinessPorts []int
	readinessURL   string
	expectedStatus int
	expectedOutput string
}

// NewStep validates a spec and builds a Step from it.
// Blank command lines are dropped; a step must keep at least one command.
func NewStep(spec StepSpec) (Step, error) {
	id, err := NewStepID(spec.ID)
	if err != nil {
		return Step{}, failure.NewManifestInvalid(spec.ID, err.Error())
	}

	commands := make([]string, 0, len(spec.Commands))
	for _, c := range spec.Commands {
		if strings.TrimSpace(c) == "" {
			continue
		}
		commands = append(commands, c)
	}
	if len(commands) == 0 {
		return Step{}, failure.NewManifestInvalid(id.String(), "step has no commands")
	}

	step := Step{
		id:             id,
		commands:       commands,
		background:     spec.Background,
		readinessURL:   strings.TrimSpace(spec.ReadinessURL),
		expectedStatus: spec.ExpectedStatus,
		expectedOutput: spec.ExpectedOutput,
	}

	if dep := strings.TrimSpace(spec.DependsOn); dep != "" {
		depID, err := NewStepID(dep)
		if err != nil {
			return Step{}, failure.NewManifestInvalid(id.String(), fmt.Sprintf("invalid depends_on %q: %v", dep, err))
		}
		step.dependsOn = depID
	}

	for _, port := range spec.ReadinessPorts {
		if port < 1 || port > 65535 {
			return Step{}, failure.NewManifestInvalid(id.String(), fmt.Sprintf("readiness port %d out of range", port))
		}
	}
	step.readinessPorts = append([]int(nil), spec.ReadinessPorts...)

	if step.expectedStatus != 0 && (step.expectedStatus < 100 || step.expectedStatus > 599) {
		return Step{}, failure.NewManifestInvalid(id.String(), fmt.Sprintf("expected status %d is not an HTTP status code", step.expectedStatus))
	}
	if step.expectedStatus != 0 && step.readinessURL == "" {
		return Step{}, failure.NewManifestInvalid(id.String(), "expected status set without a readiness URL")
	}

	return step, nil
}

// ID returns the step's identifier.
func (s Step) ID() StepID {
	return s.id
}

// Commands returns the command lines in execution order.
func (s Step) Commands() []string {
	return append([]string(nil), s.commands...)
}

// DependsOn returns the upstream step, or a zero StepID when there is none.
func (s Step) DependsOn() StepID {
	return s.dependsOn
}

// HasDependency reports whether the step declares an upstream step.
func (s Step) HasDependency() bool {
	return !s.dependsOn.IsZero()
}

// Background reports whether the step's processes keep running after it completes.
func (s Step) Background() bool {
	return s.background
}

// ReadinessPorts returns the ports awaited before a background step counts as ready.
func (s Step) ReadinessPorts() []int {
	return append([]int(nil), s.readinessPorts...)
}

// ReadinessURL returns the URL probed once after the step's commands were issued.
func (s Step) ReadinessURL() string {
	return s.readinessURL
}

// ExpectedStatus returns the status code the readiness URL must answer with, 0 for any.
func (s Step) ExpectedStatus() int {
	return s.expectedStatus
}

// ExpectedOutput returns the substring required in a foreground step's stdout.
func (s Step) ExpectedOutput() string {
	return s.expectedOutput
}

// Spec returns the step as a StepSpec.
func (s Step) Spec() StepSpec {
	return StepSpec{
		ID:             s.id.String(),
		Commands:       s.Commands(),
		DependsOn:      s.dependsOn.String(),
		Background:     s.background,
		ReadinessPorts: s.ReadinessPorts(),
		ReadinessURL:   s.readinessURL,
		ExpectedStatus: s.expectedStatus,
		ExpectedOutput: s.expectedOutput,
	}
}

// Kind returns "background" or "foreground".
func (s Step) Kind() string {
	if s.background {
		return "background"
	}
	return "foreground"
}
