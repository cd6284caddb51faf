package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest describes one installed package and its receivers.
type Manifest struct {
	Package    string      `yaml:"package"`
	Label      string      `yaml:"label"`
	Components []Component `yaml:"components"`

	source string
}

// Component is a receiver declared by a package.
type Component struct {
	Name     string   `yaml:"name"` // class name, ".Foo" is relative to the package
	Label    string   `yaml:"label"`
	Kind     string   `yaml:"kind"` // activity (default), receiver, service
	Exported *bool    `yaml:"exported"`
	Filters  []Filter `yaml:"filters"`

	// MatchAll makes the component a catch-all receiver, as this tool is.
	MatchAll bool `yaml:"match_all"`
}

// Filter is an intent filter.
type Filter struct {
	Actions    []string `yaml:"actions"`
	Categories []string `yaml:"categories"`
	Schemes    []string `yaml:"schemes"`
	Hosts      []string `yaml:"hosts"`
	Types      []string `yaml:"types"`
	Priority   int      `yaml:"priority"`
}

// Source is the file the manifest was read from.
func (m *Manifest) Source() string { return m.source }

// ClassName expands the shorthand ".Foo" form against pkg.
func (c Component) ClassName(pkg string) string {
	if strings.HasPrefix(c.Name, ".") {
		return pkg + c.Name
	}
	return c.Name
}

// IsExported reports whether other packages may address the component.
// Components with filters are exported unless stated otherwise.
func (c Component) IsExported() bool {
	if c.Exported != nil {
		return *c.Exported
	}
	return len(c.Filters) > 0 || c.MatchAll
}

// ReadManifest parses one manifest file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.source = path
	return m, nil
}

// ParseManifest decodes and validates manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks required fields.
func (m *Manifest) Validate() error {
	if m.Package == "" {
		return fmt.Errorf("manifest: package is required")
	}
	seen := make(map[string]bool, len(m.Components))
	for i, c := range m.Components {
		if c.Name == "" {
			return fmt.Errorf("manifest %s: component %d has no name", m.Package, i)
		}
		cls := c.ClassName(m.Package)
		if seen[cls] {
			return fmt.Errorf("manifest %s: duplicate component %s", m.Package, cls)
		}
		seen[cls] = true
		switch c.Kind {
		case "", "activity", "receiver", "service":
		default:
			return fmt.Errorf("manifest %s: component %s has unknown kind %q", m.Package, cls, c.Kind)
		}
	}
	return nil
}
