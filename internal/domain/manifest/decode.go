package manifest

import (
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/docsteps/internal/domain/failure"
)

// document is the YAML/TOML representation of a manifest.
type document struct {
	Requirements RequirementList   `yaml:"requirements,omitempty" toml:"-"`
	Env          map[string]string `yaml:"env,omitempty" toml:"env,omitempty"`
	Cleanup      []string          `yaml:"cleanup,omitempty" toml:"cleanup,omitempty"`
	Steps        []stepDocument    `yaml:"steps" toml:"steps"`
}

type stepDocument struct {
	ID             string             `yaml:"id" toml:"id"`
	DependsOn      string             `yaml:"depends_on,omitempty" toml:"depends_on,omitempty"`
	Background     bool               `yaml:"background,omitempty" toml:"background,omitempty"`
	Commands       []string           `yaml:"commands" toml:"commands"`
	ExpectedOutput string             `yaml:"expected_output,omitempty" toml:"expected_output,omitempty"`
	Readiness      *readinessDocument `yaml:"readiness,omitempty" toml:"readiness,omitempty"`
}

type readinessDocument struct {
	Ports          []int  `yaml:"ports,omitempty" toml:"ports,omitempty"`
	URL            string `yaml:"url,omitempty" toml:"url,omitempty"`
	ExpectedStatus int    `yaml:"expected_status,omitempty" toml:"expected_status,omitempty"`
}

// ParseYAML parses and validates a manifest from YAML bytes.
func ParseYAML(data []byte) (*Manifest, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, failure.NewManifestInvalid("", "invalid YAML manifest").WithUnderlying(err)
	}
	return doc.build()
}

// tomlRequirements holds the requirements table of a TOML manifest, which
// decodes into a plain map.
type tomlRequirements struct {
	Requirements map[string]any `toml:"requirements"`
}

// ParseTOML parses and validates a manifest from TOML bytes.
func ParseTOML(data []byte) (*Manifest, error) {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, failure.NewManifestInvalid("", "invalid TOML manifest").WithUnderlying(err)
	}

	var reqs tomlRequirements
	if err := toml.Unmarshal(data, &reqs); err != nil {
		return nil, failure.NewManifestInvalid("", "invalid TOML manifest").WithUnderlying(err)
	}
	list, err := requirementsFromTOML(reqs.Requirements)
	if err != nil {
		return nil, err
	}
	doc.Requirements = list

	return doc.build()
}

// MarshalYAML renders a manifest back into the YAML document format.
func MarshalYAML(m *Manifest) ([]byte, error) {
	return yaml.Marshal(toDocument(m))
}

func (d document) build() (*Manifest, error) {
	b := NewBuilder().
		AddRequirements(d.Requirements...).
		AddCleanup(d.Cleanup...)

	for k, v := range d.Env {
		b.SetEnv(k, v)
	}

	for _, s := range d.Steps {
		spec := StepSpec{
			ID:             s.ID,
			Commands:       s.Commands,
			DependsOn:      s.DependsOn,
			Background:     s.Background,
			ExpectedOutput: s.ExpectedOutput,
		}
		if s.Readiness != nil {
			spec.ReadinessPorts = s.Readiness.Ports
			spec.ReadinessURL = s.Readiness.URL
			spec.ExpectedStatus = s.Readiness.ExpectedStatus
		}
		b.AddStep(spec)
	}

	return b.Build()
}

func toDocument(m *Manifest) document {
	doc := document{
		Env:     m.Env(),
		Cleanup: m.CleanupCommands(),
		Steps:   make([]stepDocument, 0, m.Len()),
	}

	if reqs := m.Requirements(); len(reqs) > 0 {
		doc.Requirements = RequirementList(reqs)
	}

	for _, step := range m.Steps() {
		spec := step.Spec()
		sd := stepDocument{
			ID:             spec.ID,
			DependsOn:      spec.DependsOn,
			Background:     spec.Background,
			Commands:       spec.Commands,
			ExpectedOutput: spec.ExpectedOutput,
		}
		if len(spec.ReadinessPorts) > 0 || spec.ReadinessURL != "" {
			sd.Readiness = &readinessDocument{
				Ports:          spec.ReadinessPorts,
				URL:            spec.ReadinessURL,
				ExpectedStatus: spec.ExpectedStatus,
			}
		}
		doc.Steps = append(doc.Steps, sd)
	}

	return doc
}
