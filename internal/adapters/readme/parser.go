// Package readme extracts a docsteps manifest from validation directives
// embedded as HTML comments in a Markdown document.
//
// Supported directives:
//
//	<!-- validate:requirements
//	python: "3.11"
//	docker: true
//	-->
//
//	<!-- validate:env_vars
//	- REDIS_PORT: 6379
//	-->
//
//	<!-- validate:cleanup -->
//	```bash
//	docker rm -f redis
//	```
//
//	<!-- validate:step id="redis" background=true validate_port="6379" -->
//	```bash
//	docker run --name redis -p 6379:6379 redis
//	```
//
// Step attributes may appear in any order; only id is mandatory.
package readme

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/docsteps/internal/domain/failure"
	"github.com/felixgeelhaar/docsteps/internal/domain/manifest"
)

var (
	requirementsPattern = regexp.MustCompile(`(?s)<!--[ \t]*validate:requirements[ \t]*\n(.*?)\n[ \t]*-->`)
	envPattern          = regexp.MustCompile(`(?s)<!--[ \t]*validate:env_vars[ \t]*\n(.*?)\n[ \t]*-->`)
	cleanupPattern      = regexp.MustCompile(`<!--[ \t]*validate:cleanup[ \t]*-->`)
	stepPattern         = regexp.MustCompile(`<!--[ \t]*validate:step\b([^\n]*?)-->`)
	fencePattern        = regexp.MustCompile("(?ms)\\A[ \\t]*\\n+```[A-Za-z]*[ \\t]*\\n(.*?)^```")
	attributePattern    = regexp.MustCompile(`([A-Za-z_]+)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"']+))`)
)

// Step directive attributes.
const (
	attrID             = "id"
	attrDependsOn      = "depends_on"
	attrBackground     = "background"
	attrValidatePort   = "validate_port"
	attrExpectedOutput = "expected_output"
	attrValidateURL    = "validate_url"
	attrExpectedStatus = "expected_status"
)

// Parse builds a manifest from the directives found in a Markdown document.
// A document without directives yields an empty manifest.
func Parse(data []byte) (*manifest.Manifest, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	b := manifest.NewBuilder()

	if err := parseRequirements(content, b); err != nil {
		return nil, err
	}
	if err := parseEnv(content, b); err != nil {
		return nil, err
	}
	if err := parseCleanup(content, b); err != nil {
		return nil, err
	}
	if err := parseSteps(content, b); err != nil {
		return nil, err
	}

	return b.Build()
}

func parseRequirements(content string, b *manifest.Builder) error {
	for _, m := range requirementsPattern.FindAllStringSubmatchIndex(content, -1) {
		var reqs manifest.RequirementList
		if err := yaml.Unmarshal([]byte(content[m[2]:m[3]]), &reqs); err != nil {
			return invalid(content, m[0], "invalid requirements block").WithUnderlying(err)
		}
		b.AddRequirements(reqs...)
	}
	return nil
}

func parseEnv(content string, b *manifest.Builder) error {
	for _, m := range envPattern.FindAllStringSubmatchIndex(content, -1) {
		var raw any
		if err := yaml.Unmarshal([]byte(content[m[2]:m[3]]), &raw); err != nil {
			return invalid(content, m[0], "invalid env_vars block").WithUnderlying(err)
		}

		switch v := raw.(type) {
		case nil:
		case []any:
			for _, item := range v {
				entry, ok := item.(map[string]any)
				if !ok {
					return invalid(content, m[0], fmt.Sprintf("env_vars entry %v is not a KEY: value mapping", item))
				}
				for key, value := range entry {
					b.SetEnv(key, scalar(value))
				}
			}
		case map[string]any:
			for key, value := range v {
				b.SetEnv(key, scalar(value))
			}
		default:
			return invalid(content, m[0], "env_vars must be a list of KEY: value mappings")
		}
	}
	return nil
}

func parseCleanup(content string, b *manifest.Builder) error {
	for _, m := range cleanupPattern.FindAllStringIndex(content, -1) {
		block, ok := codeBlockAfter(content, m[1])
		if !ok {
			return invalid(content, m[0], "cleanup directive is not followed by a code block")
		}
		b.AddCleanup(lines(block)...)
	}
	return nil
}

func parseSteps(content string, b *manifest.Builder) error {
	for _, m := range stepPattern.FindAllStringSubmatchIndex(content, -1) {
		attrs, err := parseAttributes(content[m[2]:m[3]])
		if err != nil {
			return invalid(content, m[0], err.Error())
		}

		spec, err := stepSpec(attrs)
		if err != nil {
			return invalid(content, m[0], err.Error()).WithStepID(attrs[attrID])
		}

		block, ok := codeBlockAfter(content, m[1])
		if !ok {
			return invalid(content, m[0], "step directive is not followed by a code block").WithStepID(spec.ID)
		}
		spec.Commands = lines(block)

		b.AddStep(spec)
	}
	return nil
}

func parseAttributes(raw string) (map[string]string, error) {
	attrs := make(map[string]string)
	for _, m := range attributePattern.FindAllStringSubmatch(raw, -1) {
		name := m[1]
		switch name {
		case attrID, attrDependsOn, attrBackground, attrValidatePort,
			attrExpectedOutput, attrValidateURL, attrExpectedStatus:
		default:
			return nil, fmt.Errorf("unknown step attribute %q", name)
		}
		if _, dup := attrs[name]; dup {
			return nil, fmt.Errorf("attribute %q given more than once", name)
		}
		attrs[name] = m[2] + m[3] + m[4]
	}
	return attrs, nil
}

func stepSpec(attrs map[string]string) (manifest.StepSpec, error) {
	spec := manifest.StepSpec{
		ID:             attrs[attrID],
		DependsOn:      attrs[attrDependsOn],
		ExpectedOutput: attrs[attrExpectedOutput],
		ReadinessURL:   attrs[attrValidateURL],
	}
	if spec.ID == "" {
		return spec, fmt.Errorf("step directive without id")
	}

	if v, ok := attrs[attrBackground]; ok {
		background, err := strconv.ParseBool(v)
		if err != nil {
			return spec, fmt.Errorf("background=%q is not a boolean", v)
		}
		spec.Background = background
	}

	if v := attrs[attrValidatePort]; v != "" {
		for _, field := range strings.Split(v, ",") {
			port, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil {
				return spec, fmt.Errorf("validate_port %q is not a port list", v)
			}
			spec.ReadinessPorts = append(spec.ReadinessPorts, port)
		}
	}

	if v := attrs[attrExpectedStatus]; v != "" {
		status, err := strconv.Atoi(v)
		if err != nil {
			return spec, fmt.Errorf("expected_status %q is not a number", v)
		}
		spec.ExpectedStatus = status
	}

	return spec, nil
}

// codeBlockAfter returns the body of the fenced code block that starts on the
// line following offset.
func codeBlockAfter(content string, offset int) (string, bool) {
	m := fencePattern.FindStringSubmatch(content[offset:])
	if m == nil {
		return "", false
	}
	return m[1], true
}

func lines(block string) []string {
	var out []string
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return out
}

func scalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func invalid(content string, offset int, message string) *failure.Error {
	line := strings.Count(content[:offset], "\n") + 1
	return failure.NewManifestInvalid("", fmt.Sprintf("line %d: %s", line, message))
}
