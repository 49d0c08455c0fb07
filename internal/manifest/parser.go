package manifest

import (
	_ "embed"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

//go:embed placements.yaml
var defaultManifest []byte

// Default returns the manifest embedded in the binary.
func Default() (*Manifest, error) {
	return ParseBytes(defaultManifest, "embedded placements.yaml")
}

// DefaultBytes returns the raw embedded manifest.
func DefaultBytes() []byte {
	return append([]byte(nil), defaultManifest...)
}

// Load parses the manifest at path, or the embedded one when path is empty.
func Load(path string) (*Manifest, error) {
	if path == "" {
		return Default()
	}
	return Parse(path)
}

// Parse reads a manifest file.
func Parse(path string) (*Manifest, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data, path)
}

// ParseBytes parses manifest YAML. name is used in error messages.
func ParseBytes(data []byte, name string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", name, err)
	}
	if len(m.Placements) == 0 {
		return nil, fmt.Errorf("manifest %s declares no placements", name)
	}
	m.applyDefaults()
	return &m, nil
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
