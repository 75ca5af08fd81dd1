package domain

import (
	"fmt"
)

// IndexKind enumerates supported index kinds.
type IndexKind string

const (
	// KindRegular is an ordinary B-tree index over one or more keys.
	KindRegular IndexKind = "regular"
	// KindText is a text index (key type "text").
	KindText IndexKind = "text"
	// KindGeospatial is a geospatial index (key type "2dsphere").
	KindGeospatial IndexKind = "geospatial"
	// KindTTL is a regular index with document expiry.
	KindTTL IndexKind = "ttl"
	// KindPartial is a regular index restricted by a partial filter expression.
	KindPartial IndexKind = "partial"
	// KindSearch is an asynchronous full-text search index.
	KindSearch IndexKind = "search"
	// KindVectorSearch is an asynchronous vector search index.
	KindVectorSearch IndexKind = "vectorSearch"
)

// Keyed reports whether the kind is defined by a key list (as opposed to an
// opaque search definition built asynchronously by the backend).
func (k IndexKind) Keyed() bool {
	switch k {
	case KindRegular, KindText, KindGeospatial, KindTTL, KindPartial:
		return true
	case KindSearch, KindVectorSearch:
		return false
	}
	return false
}

// SearchType maps the kind to the backend search-index type name.
func (k IndexKind) SearchType() string {
	if k == KindVectorSearch {
		return "vectorSearch"
	}
	return "search"
}

// IndexKey is a single (field, direction-or-type) entry of a keyed index.
// Value is 1 or -1 for regular/ttl/partial keys, "text" for text keys and
// "2dsphere" for geospatial keys.
type IndexKey struct {
	Field string
	Value any
}

// IndexOptions holds the optional settings of keyed index kinds.
type IndexOptions struct {
	Unique             bool
	Sparse             bool
	ExpireAfterSeconds *int32
	PartialFilter      map[string]any
}

// IndexDefinition is one declared index of a tenant manifest. Exactly one of
// Keys (keyed kinds) or Definition (search kinds) is populated.
type IndexDefinition struct {
	Name       string
	Kind       IndexKind
	Keys       []IndexKey
	Definition map[string]any
	Options    IndexOptions
}

// NamespacedName returns the index name prefixed with the tenant id, which
// keeps index names collision-free across tenants sharing a name catalog.
func (d IndexDefinition) NamespacedName(tenant string) string {
	return tenant + "_" + d.Name
}

// IsImplicitID reports whether the definition targets the implicit {_id: 1}
// index, which the store manages itself and which cannot be customized.
func (d IndexDefinition) IsImplicitID() bool {
	if d.Kind != KindRegular || len(d.Keys) != 1 {
		return false
	}
	k := d.Keys[0]
	if k.Field != "_id" {
		return false
	}
	switch v := k.Value.(type) {
	case int:
		return v == 1
	case int32:
		return v == 1
	case int64:
		return v == 1
	case float64:
		return v == 1
	}
	return false
}

// Validate checks that the definition is well-formed for its kind.
func (d IndexDefinition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidIndex)
	}
	switch {
	case d.Kind.Keyed():
		if len(d.Keys) == 0 {
			return fmt.Errorf("%w: %q: kind %s requires keys", ErrInvalidIndex, d.Name, d.Kind)
		}
		if d.Definition != nil {
			return fmt.Errorf("%w: %q: kind %s does not take a definition", ErrInvalidIndex, d.Name, d.Kind)
		}
	case d.Kind == KindSearch || d.Kind == KindVectorSearch:
		if len(d.Definition) == 0 {
			return fmt.Errorf("%w: %q: kind %s requires a definition", ErrInvalidIndex, d.Name, d.Kind)
		}
		if len(d.Keys) != 0 {
			return fmt.Errorf("%w: %q: kind %s does not take keys", ErrInvalidIndex, d.Name, d.Kind)
		}
	default:
		return fmt.Errorf("%w: %q: unknown kind %q", ErrInvalidIndex, d.Name, d.Kind)
	}
	if d.Kind == KindTTL && d.Options.ExpireAfterSeconds == nil {
		return fmt.Errorf("%w: %q: ttl kind requires expire_after_seconds", ErrInvalidIndex, d.Name)
	}
	if d.Kind == KindPartial && len(d.Options.PartialFilter) == 0 {
		return fmt.Errorf("%w: %q: partial kind requires partial_filter", ErrInvalidIndex, d.Name)
	}
	return nil
}

// IndexStatus is the observed lifecycle status of an index on the live store.
type IndexStatus string

const (
	// StatusAbsent means no index with the name exists.
	StatusAbsent IndexStatus = "absent"
	// StatusPending means the asynchronous build is still in progress.
	StatusPending IndexStatus = "pending"
	// StatusReady means the index is queryable.
	StatusReady IndexStatus = "ready"
	// StatusFailed means the build failed terminally.
	StatusFailed IndexStatus = "failed"
	// StatusStale means the index exists but differs from the desired definition.
	StatusStale IndexStatus = "stale"
)
