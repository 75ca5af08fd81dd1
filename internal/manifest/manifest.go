// Package manifest parses and validates tenant manifests: the tenant id, its
// read scopes and the indexes it declares per logical collection. A manifest
// is validated as a whole before anything is handed to the data layer, so a
// malformed manifest is rejected upstream and never partially applied.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/labfoundry/expstore/internal/domain"
)

// Manifest declares one tenant's scope and desired indexes.
type Manifest struct {
	Experiment  string                 `yaml:"experiment"`
	ReadScopes  []string               `yaml:"read_scopes"`
	Collections map[string][]IndexSpec `yaml:"collections"`
}

// IndexSpec is the manifest shape of one index definition.
type IndexSpec struct {
	Name       string         `yaml:"name"`
	Kind       string         `yaml:"kind"`
	Keys       []KeySpec      `yaml:"keys,omitempty"`
	Definition map[string]any `yaml:"definition,omitempty"`
	Options    OptionsSpec    `yaml:"options,omitempty"`
}

// KeySpec is one (field, order-or-type) entry of a keyed index.
// Order defaults per kind: 1 for regular/ttl/partial, "text" for text,
// "2dsphere" for geospatial.
type KeySpec struct {
	Field string `yaml:"field"`
	Order any    `yaml:"order,omitempty"`
}

// OptionsSpec holds optional settings of keyed index kinds.
type OptionsSpec struct {
	Unique             bool           `yaml:"unique,omitempty"`
	Sparse             bool           `yaml:"sparse,omitempty"`
	ExpireAfterSeconds *int32         `yaml:"expire_after_seconds,omitempty"`
	PartialFilter      map[string]any `yaml:"partial_filter,omitempty"`
}

// Parse unmarshals and validates a manifest.
func Parse(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", domain.ErrInvalidManifest, err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Load reads and parses a manifest file.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// LoadDir parses every *.yaml / *.yml manifest in a directory, sorted by name.
func LoadDir(dir string) ([]Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read manifest dir %s: %w", dir, err)
	}
	var manifests []Manifest
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		m, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

// Validate checks the manifest as a whole.
func (m Manifest) Validate() error {
	if m.Experiment == "" {
		return fmt.Errorf("%w: experiment is required", domain.ErrInvalidManifest)
	}
	if _, err := m.Scope(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidManifest, err)
	}
	for logical, specs := range m.Collections {
		if logical == "" {
			return fmt.Errorf("%w: empty collection name", domain.ErrInvalidManifest)
		}
		seen := make(map[string]bool, len(specs))
		for _, spec := range specs {
			def, err := spec.definition()
			if err != nil {
				return fmt.Errorf("%w: collection %q: %v", domain.ErrInvalidManifest, logical, err)
			}
			if err := def.Validate(); err != nil {
				return fmt.Errorf("%w: collection %q: %v", domain.ErrInvalidManifest, logical, err)
			}
			if seen[def.Name] {
				return fmt.Errorf("%w: collection %q: duplicate index name %q",
					domain.ErrInvalidManifest, logical, def.Name)
			}
			seen[def.Name] = true
		}
	}
	return nil
}

// Scope resolves the manifest's read scopes (including the "self" sentinel)
// into the tenant scope.
func (m Manifest) Scope() (domain.TenantScope, error) {
	return domain.NewTenantScope(m.Experiment, m.ReadScopes)
}

// Indexes converts the declared index specs into domain definitions, keyed by
// logical collection name. Validate must have passed first.
func (m Manifest) Indexes() map[string][]domain.IndexDefinition {
	out := make(map[string][]domain.IndexDefinition, len(m.Collections))
	for logical, specs := range m.Collections {
		defs := make([]domain.IndexDefinition, 0, len(specs))
		for _, spec := range specs {
			def, err := spec.definition()
			if err != nil {
				continue // rejected by Validate
			}
			defs = append(defs, def)
		}
		out[logical] = defs
	}
	return out
}

// CollectionNames returns the declared logical collection names, sorted.
func (m Manifest) CollectionNames() []string {
	names := make([]string, 0, len(m.Collections))
	for name := range m.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s IndexSpec) definition() (domain.IndexDefinition, error) {
	kind := domain.IndexKind(s.Kind)
	def := domain.IndexDefinition{
		Name:       s.Name,
		Kind:       kind,
		Definition: s.Definition,
		Options: domain.IndexOptions{
			Unique:             s.Options.Unique,
			Sparse:             s.Options.Sparse,
			ExpireAfterSeconds: s.Options.ExpireAfterSeconds,
			PartialFilter:      s.Options.PartialFilter,
		},
	}
	for _, k := range s.Keys {
		if k.Field == "" {
			return domain.IndexDefinition{}, fmt.Errorf("index %q: key field is required", s.Name)
		}
		order := k.Order
		if order == nil {
			order = defaultOrder(kind)
		}
		def.Keys = append(def.Keys, domain.IndexKey{Field: k.Field, Value: order})
	}
	return def, nil
}

func defaultOrder(kind domain.IndexKind) any {
	switch kind {
	case domain.KindText:
		return "text"
	case domain.KindGeospatial:
		return "2dsphere"
	default:
		return 1
	}
}
