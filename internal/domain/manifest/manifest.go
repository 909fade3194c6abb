// Package manifest models the declarative description of a docsteps run:
// the steps, the preflight requirements, the environment overlay and the
// cleanup commands.
//
// Each step has at most one direct dependency. Multi-dependency graphs are
// not supported, and dependency cycles are not detected statically: the
// scheduler reports them as a stalled run.
package manifest

import (
	"strings"

	"github.com/felixgeelhaar/docsteps/internal/domain/failure"
)

// Manifest owns the steps of a run in declaration order.
type Manifest struct {
	steps        []Step
	index        map[string]int
	requirements []Requirement
	env          map[string]string
	cleanup      []string
}

// Steps returns the steps in declaration order.
func (m *Manifest) Steps() []Step {
	return append([]Step(nil), m.steps...)
}

// Len returns the number of steps.
func (m *Manifest) Len() int {
	return len(m.steps)
}

// IsEmpty returns true if the manifest declares no steps.
func (m *Manifest) IsEmpty() bool {
	return len(m.steps) == 0
}

// Get retrieves a step by ID.
func (m *Manifest) Get(id StepID) (Step, bool) {
	i, ok := m.index[id.String()]
	if !ok {
		return Step{}, false
	}
	return m.steps[i], true
}

// Has reports whether a step with the given ID exists.
func (m *Manifest) Has(id StepID) bool {
	_, ok := m.index[id.String()]
	return ok
}

// Requirements returns the preflight requirements in declaration order.
func (m *Manifest) Requirements() []Requirement {
	return append([]Requirement(nil), m.requirements...)
}

// Env returns a copy of the environment overlay.
func (m *Manifest) Env() map[string]string {
	env := make(map[string]string, len(m.env))
	for k, v := range m.env {
		env[k] = v
	}
	return env
}

// CleanupCommands returns the teardown commands in order.
func (m *Manifest) CleanupCommands() []string {
	return append([]string(nil), m.cleanup...)
}

// WithBaseEnv returns a copy of the manifest whose environment is base overlaid
// by the manifest's own bindings.
func (m *Manifest) WithBaseEnv(base map[string]string) *Manifest {
	env := make(map[string]string, len(base)+len(m.env))
	for k, v := range base {
		env[k] = v
	}
	for k, v := range m.env {
		env[k] = v
	}

	c := *m
	c.env = env
	return &c
}

// ExecutionOrder returns the steps in the order the scheduler runs them when
// every step succeeds: repeated declaration-order passes, each taking the steps
// whose dependency already ran. A pass without progress yields SchedulingStalled.
func (m *Manifest) ExecutionOrder() ([]Step, error) {
	done := make(map[string]bool, len(m.steps))
	order := make([]Step, 0, len(m.steps))

	for len(order) < len(m.steps) {
		progressed := false
		for _, step := range m.steps {
			id := step.ID().String()
			if done[id] {
				continue
			}
			if step.HasDependency() && !done[step.DependsOn().String()] {
				continue
			}
			done[id] = true
			order = append(order, step)
			progressed = true
		}
		if !progressed {
			return order, failure.NewSchedulingStalled(m.pending(done))
		}
	}

	return order, nil
}

func (m *Manifest) pending(done map[string]bool) []string {
	pending := make([]string, 0)
	for _, step := range m.steps {
		if !done[step.ID().String()] {
			pending = append(pending, step.ID().String())
		}
	}
	return pending
}

// Builder assembles a Manifest and validates it in Build.
type Builder struct {
	specs        []StepSpec
	requirements []Requirement
	env          map[string]string
	cleanup      []string
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		env: make(map[string]string),
	}
}

// AddStep appends a step in declaration order.
func (b *Builder) AddStep(spec StepSpec) *Builder {
	b.specs = append(b.specs, spec)
	return b
}

// AddRequirement appends a preflight requirement.
func (b *Builder) AddRequirement(name, value string) *Builder {
	b.requirements = append(b.requirements, Requirement{Name: name, Value: value})
	return b
}

// AddRequirements appends several requirements.
func (b *Builder) AddRequirements(reqs ...Requirement) *Builder {
	b.requirements = append(b.requirements, reqs...)
	return b
}

// SetEnv binds an environment variable for all spawned commands.
func (b *Builder) SetEnv(key, value string) *Builder {
	b.env[key] = value
	return b
}

// AddCleanup appends teardown commands. Blank lines are ignored.
func (b *Builder) AddCleanup(commands ...string) *Builder {
	for _, c := range commands {
		if strings.TrimSpace(c) != "" {
			b.cleanup = append(b.cleanup, c)
		}
	}
	return b
}

// Build validates the collected declarations and returns the Manifest.
// Invalid steps, duplicate ids and dependencies on undeclared steps fail with
// ManifestInvalid before anything is executed.
func (b *Builder) Build() (*Manifest, error) {
	m := &Manifest{
		steps:        make([]Step, 0, len(b.specs)),
		index:        make(map[string]int, len(b.specs)),
		requirements: append([]Requirement(nil), b.requirements...),
		env:          make(map[string]string, len(b.env)),
		cleanup:      append([]string(nil), b.cleanup...),
	}

	for k, v := range b.env {
		if strings.TrimSpace(k) == "" {
			return nil, failure.NewManifestInvalid("", "environment variable with empty name")
		}
		m.env[k] = v
	}

	for _, req := range m.requirements {
		if strings.TrimSpace(req.Name) == "" {
			return nil, failure.NewManifestInvalid("", "requirement with empty name")
		}
	}

	for _, spec := range b.specs {
		step, err := NewStep(spec)
		if err != nil {
			return nil, err
		}
		id := step.ID().String()
		if _, exists := m.index[id]; exists {
			return nil, failure.NewDuplicateStep(id)
		}
		m.index[id] = len(m.steps)
		m.steps = append(m.steps, step)
	}

	for _, step := range m.steps {
		if step.HasDependency() && !m.Has(step.DependsOn()) {
			return nil, failure.NewMissingDependency(step.ID().String(), step.DependsOn().String())
		}
	}

	return m, nil
}
