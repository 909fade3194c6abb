// Package envfile loads KEY=VALUE environment files for docsteps runs.
package envfile

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

var loadOptions = ini.LoadOptions{
	IgnoreInlineComment: true,
	KeyValueDelimiters:  "=",
}

// Load reads an env file. Lines are KEY=VALUE pairs, optionally prefixed with
// "export"; blank lines and lines starting with # or ; are comments.
// Sections are not allowed.
func Load(path string) (map[string]string, error) {
	cfg, err := ini.LoadSources(loadOptions, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return fromFile(path, cfg)
}

// Parse reads env bindings from raw bytes.
func Parse(data []byte) (map[string]string, error) {
	cfg, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse env file: %w", err)
	}
	return fromFile("env file", cfg)
}

func fromFile(name string, cfg *ini.File) (map[string]string, error) {
	for _, section := range cfg.Sections() {
		if section.Name() != ini.DefaultSection && len(section.Keys()) > 0 {
			return nil, fmt.Errorf("%s: section [%s] is not supported in env files", name, section.Name())
		}
	}

	env := make(map[string]string)
	for _, key := range cfg.Section(ini.DefaultSection).Keys() {
		name := strings.TrimSpace(strings.TrimPrefix(key.Name(), "export "))
		if name == "" {
			continue
		}
		env[name] = key.String()
	}
	return env, nil
}
