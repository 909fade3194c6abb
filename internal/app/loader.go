package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/docsteps/internal/adapters/envfile"
	"github.com/felixgeelhaar/docsteps/internal/adapters/readme"
	"github.com/felixgeelhaar/docsteps/internal/domain/failure"
	"github.com/felixgeelhaar/docsteps/internal/domain/manifest"
)

// Format identifies a manifest source format.
type Format string

// Supported manifest formats.
const (
	FormatMarkdown Format = "markdown"
	FormatYAML     Format = "yaml"
	FormatTOML     Format = "toml"
)

// DetectFormat infers the manifest format from a file extension.
// Anything that is not YAML or TOML is read as an annotated README.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatMarkdown
	}
}

// ParseManifest decodes data in the given format.
func ParseManifest(data []byte, format Format) (*manifest.Manifest, error) {
	switch format {
	case FormatYAML:
		return manifest.ParseYAML(data)
	case FormatTOML:
		return manifest.ParseTOML(data)
	case FormatMarkdown:
		return readme.Parse(data)
	default:
		return nil, failure.NewManifestInvalid("", fmt.Sprintf("unknown manifest format %q", format))
	}
}

// LoadManifest reads and validates the manifest at path. When envFile is set,
// its bindings become the base environment, overridden by the manifest's own.
func LoadManifest(path, envFile string) (*manifest.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := ParseManifest(data, DetectFormat(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if envFile != "" {
		base, err := envfile.Load(envFile)
		if err != nil {
			return nil, err
		}
		m = m.WithBaseEnv(base)
	}

	return m, nil
}
