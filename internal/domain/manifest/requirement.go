package manifest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/docsteps/internal/domain/failure"
)

// Requirement is a named preflight assertion, e.g. python="3.11" or docker="true".
type Requirement struct {
	Name  string
	Value string
}

// Bool interprets the value as a flag. Only true and false (any case) are
// flags; ok is false for every other value, including "1" and "0".
func (r Requirement) Bool() (value, ok bool) {
	switch v := strings.TrimSpace(r.Value); {
	case strings.EqualFold(v, "true"):
		return true, true
	case strings.EqualFold(v, "false"):
		return false, true
	default:
		return false, false
	}
}

// RequirementList is a requirements mapping in declaration order.
//
// It decodes from YAML node by node so scalar values keep the text they were
// written with: an unquoted python: 3.10 stays "3.10" instead of becoming
// the float 3.1.
type RequirementList []Requirement

// UnmarshalYAML decodes a mapping of tool names to scalar values.
func (l *RequirementList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*l = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: requirements must be a mapping of tool names to values", node.Line)
	}

	seen := make(map[string]bool, len(node.Content)/2)
	reqs := make(RequirementList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if seen[key.Value] {
			return fmt.Errorf("line %d: requirement %q declared more than once", key.Line, key.Value)
		}
		seen[key.Value] = true

		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: requirement %q must be a scalar value", value.Line, key.Value)
		}
		v := value.Value
		if value.Tag == "!!null" {
			v = ""
		}
		reqs = append(reqs, Requirement{Name: key.Value, Value: v})
	}

	*l = reqs
	return nil
}

// MarshalYAML encodes the requirements as a mapping in declaration order.
// Flags are written as booleans, everything else as strings.
func (l RequirementList) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, r := range l {
		var value yaml.Node
		var err error
		if b, ok := r.Bool(); ok {
			err = value.Encode(b)
		} else {
			err = value.Encode(r.Value)
		}
		if err != nil {
			return nil, err
		}
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: r.Name}
		node.Content = append(node.Content, key, &value)
	}
	return node, nil
}

// requirementsFromTOML converts a decoded TOML requirements table. TOML
// tables carry no order, so requirements are sorted by name. Floats are
// rejected: 3.10 and 3.1 are the same TOML float.
func requirementsFromTOML(m map[string]any) ([]Requirement, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	reqs := make([]Requirement, 0, len(names))
	for _, name := range names {
		var value string
		switch v := m[name].(type) {
		case string:
			value = v
		case bool:
			value = strconv.FormatBool(v)
		case int64:
			value = strconv.FormatInt(v, 10)
		case float64:
			return nil, failure.NewManifestInvalid("", fmt.Sprintf("requirement %q has an unquoted decimal version", name)).
				WithSuggestion(fmt.Sprintf("Quote the version as it should match, e.g. %s = \"%s\".", name, strconv.FormatFloat(v, 'f', -1, 64)))
		default:
			return nil, failure.NewManifestInvalid("", fmt.Sprintf("requirement %q must be a string, integer or boolean", name))
		}
		reqs = append(reqs, Requirement{Name: name, Value: value})
	}
	return reqs, nil
}
