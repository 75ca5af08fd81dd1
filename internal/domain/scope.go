package domain

import (
	"errors"
	"sort"
)

// ScopeField is the document field that carries the owning tenant id.
// Every write through a scoped collection stamps it; every read filters on it.
const ScopeField = "experiment_id"

// ScopeSelf is the manifest sentinel meaning "the tenant's own id".
const ScopeSelf = "self"

// TenantScope is the immutable visibility contract of one tenant.
// WriteScope is the tenant's own id, stamped onto every document it creates.
// ReadScopes is the set of tenant ids whose documents it may read and always
// contains WriteScope.
type TenantScope struct {
	writeScope string
	readScopes map[string]struct{}
}

// NewTenantScope builds a scope for the given tenant. readScopes may contain
// the ScopeSelf sentinel and duplicates; the tenant's own id is always added.
func NewTenantScope(writeScope string, readScopes []string) (TenantScope, error) {
	if writeScope == "" {
		return TenantScope{}, errors.New("write scope is required")
	}
	set := make(map[string]struct{}, len(readScopes)+1)
	set[writeScope] = struct{}{}
	for _, s := range readScopes {
		if s == "" {
			return TenantScope{}, errors.New("empty read scope")
		}
		if s == ScopeSelf {
			s = writeScope
		}
		set[s] = struct{}{}
	}
	return TenantScope{writeScope: writeScope, readScopes: set}, nil
}

// WriteScope returns the tenant's own id.
func (s TenantScope) WriteScope() string { return s.writeScope }

// ReadScopes returns the readable tenant ids, sorted for deterministic filters.
func (s TenantScope) ReadScopes() []string {
	out := make([]string, 0, len(s.readScopes))
	for id := range s.readScopes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// CanRead reports whether documents stamped with the given tenant id are visible.
func (s TenantScope) CanRead(tenant string) bool {
	_, ok := s.readScopes[tenant]
	return ok
}

// PhysicalName resolves a logical collection name to the tenant-prefixed
// physical collection name. Two tenants never share a physical collection.
func (s TenantScope) PhysicalName(logical string) string {
	return s.writeScope + "_" + logical
}
