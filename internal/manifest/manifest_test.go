package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/labfoundry/expstore/internal/domain"
)

const validManifest = `
experiment: alpha
read_scopes: [self, beta]
collections:
  items:
    - name: by_email
      kind: regular
      keys:
        - field: email
      options:
        unique: true
    - name: semantic
      kind: vectorSearch
      definition:
        fields:
          - type: vector
            path: embedding
            numDimensions: 1536
            similarity: cosine
  events:
    - name: expires
      kind: ttl
      keys:
        - field: created_at
      options:
        expire_after_seconds: 86400
`

func TestParse_Valid(t *testing.T) {
	m, err := Parse([]byte(validManifest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Experiment != "alpha" {
		t.Fatalf("expected experiment alpha, got %s", m.Experiment)
	}
	if got := m.CollectionNames(); !reflect.DeepEqual(got, []string{"events", "items"}) {
		t.Fatalf("expected sorted collection names, got %v", got)
	}

	scope, err := m.Scope()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(scope.ReadScopes(), []string{"alpha", "beta"}) {
		t.Fatalf("expected read scopes [alpha beta], got %v", scope.ReadScopes())
	}
}

func TestParse_DefaultsKeyOrder(t *testing.T) {
	m, err := Parse([]byte(`
experiment: alpha
collections:
  items:
    - name: by_email
      kind: regular
      keys:
        - field: email
    - name: fulltext
      kind: text
      keys:
        - field: body
    - name: near
      kind: geospatial
      keys:
        - field: location
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defs := m.Indexes()["items"]
	want := map[string]any{"by_email": 1, "fulltext": "text", "near": "2dsphere"}
	for _, def := range defs {
		if got := def.Keys[0].Value; got != want[def.Name] {
			t.Fatalf("index %s: expected default order %v, got %v", def.Name, want[def.Name], got)
		}
	}
}

func TestParse_TTLCarriesExpiry(t *testing.T) {
	m, err := Parse([]byte(validManifest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defs := m.Indexes()["events"]
	if len(defs) != 1 || defs[0].Kind != domain.KindTTL {
		t.Fatalf("expected one ttl index, got %+v", defs)
	}
	if defs[0].Options.ExpireAfterSeconds == nil || *defs[0].Options.ExpireAfterSeconds != 86400 {
		t.Fatal("expected expire_after_seconds 86400")
	}
}

func TestParse_RejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("experiment: [unclosed"))
	if !errors.Is(err, domain.ErrInvalidManifest) {
		t.Fatalf("expected ErrInvalidManifest, got %v", err)
	}
}

func TestParse_RejectsMissingExperiment(t *testing.T) {
	_, err := Parse([]byte("read_scopes: [self]"))
	if !errors.Is(err, domain.ErrInvalidManifest) {
		t.Fatalf("expected ErrInvalidManifest, got %v", err)
	}
}

func TestParse_RejectsWholeManifestOnOneBadIndex(t *testing.T) {
	_, err := Parse([]byte(`
experiment: alpha
collections:
  items:
    - name: by_email
      kind: regular
      keys:
        - field: email
    - name: broken
      kind: ttl
      keys:
        - field: created_at
`))
	if !errors.Is(err, domain.ErrInvalidManifest) {
		t.Fatalf("expected ErrInvalidManifest, got %v", err)
	}
}

func TestParse_RejectsDuplicateIndexNames(t *testing.T) {
	_, err := Parse([]byte(`
experiment: alpha
collections:
  items:
    - name: by_email
      kind: regular
      keys:
        - field: email
    - name: by_email
      kind: regular
      keys:
        - field: alt_email
`))
	if !errors.Is(err, domain.ErrInvalidManifest) {
		t.Fatalf("expected ErrInvalidManifest, got %v", err)
	}
}

func TestParse_RejectsMissingKeyField(t *testing.T) {
	_, err := Parse([]byte(`
experiment: alpha
collections:
  items:
    - name: by_email
      kind: regular
      keys:
        - order: 1
`))
	if !errors.Is(err, domain.ErrInvalidManifest) {
		t.Fatalf("expected ErrInvalidManifest, got %v", err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("alpha.yaml", validManifest)
	write("beta.yml", "experiment: beta\n")
	write("notes.txt", "not a manifest")

	manifests, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(manifests) != 2 {
		t.Fatalf("expected 2 manifests, got %d", len(manifests))
	}
	if manifests[0].Experiment != "alpha" || manifests[1].Experiment != "beta" {
		t.Fatalf("expected manifests sorted by file name, got %s, %s",
			manifests[0].Experiment, manifests[1].Experiment)
	}
}

func TestLoadDir_FailsOnBadManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("experiment: ''\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadDir(dir); err == nil {
		t.Fatal("expected error for invalid manifest in dir")
	}
}
