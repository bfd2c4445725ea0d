package content

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// FlagSpec is the navigability part of a catalog entry as written in YAML.
type FlagSpec struct {
	Unwalkable  bool `yaml:"unwalkable"`
	BlocksSight bool `yaml:"blocks_sight"`
}

type catalogFile struct {
	Elements []elementSpec `yaml:"elements"`
}

type elementSpec struct {
	Group      Group          `yaml:"group"`
	ID         uint32         `yaml:"id"`
	Name       string         `yaml:"name"`
	Flags      FlagSpec       `yaml:"flags"`
	Properties map[string]any `yaml:"properties"`
}

// LoadCatalog decodes a YAML catalog. convert maps the generic flag spec to
// the host's navigability type.
func LoadCatalog[N any](r io.Reader, convert func(FlagSpec) N) (*MemoryCatalog[N], error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	c := NewMemoryCatalog[N]()
	for _, spec := range file.Elements {
		id := ID{Group: spec.Group, ID: spec.ID}
		if _, dup := c.Lookup(id); dup {
			return nil, fmt.Errorf("duplicate catalog entry %s", id)
		}
		c.Put(VisualElement[N]{
			ID:         id,
			Name:       spec.Name,
			Flags:      convert(spec.Flags),
			Properties: spec.Properties,
		})
	}
	return c, nil
}

// LoadCatalogFile reads a YAML catalog from disk.
func LoadCatalogFile[N any](path string, convert func(FlagSpec) N) (*MemoryCatalog[N], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	defer f.Close()

	c, err := LoadCatalog(f, convert)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", path, err)
	}
	return c, nil
}

// UnmarshalYAML decodes a group written by name.
func (g *Group) UnmarshalYAML(value *yaml.Node) error {
	return g.UnmarshalText([]byte(value.Value))
}
