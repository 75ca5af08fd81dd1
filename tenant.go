package expstore

import (
	"context"

	"github.com/labfoundry/expstore/internal/scope"
	"github.com/labfoundry/expstore/internal/tenant"
)

// Job is the handle of one fire-and-forget reconciliation submission. A job
// rejected at capacity is reported here, never queued; a fresh registration
// re-submits it.
type Job struct {
	ID         string
	Collection string
	Submitted  bool
}

// Tenant is a registered tenant's scoped view of the store.
type Tenant struct {
	id   string
	db   *scope.Database
	jobs []Job
}

func newTenant(t *tenant.Tenant) *Tenant {
	jobs := make([]Job, len(t.Jobs))
	for i, j := range t.Jobs {
		jobs[i] = Job{ID: j.ID, Collection: j.Collection, Submitted: j.Submitted}
	}
	return &Tenant{id: t.ID, db: t.DB, jobs: jobs}
}

// ID returns the tenant id.
func (t *Tenant) ID() string { return t.id }

// Jobs returns the reconciliation jobs submitted during registration.
func (t *Tenant) Jobs() []Job {
	return append([]Job(nil), t.jobs...)
}

// Collection resolves a logical collection name to its scoped handle. The
// collection must have been declared in the manifest; access never creates one.
func (t *Tenant) Collection(ctx context.Context, logical string) (*Collection, error) {
	col, err := t.db.Collection(ctx, logical)
	if err != nil {
		return nil, err
	}
	return &Collection{inner: col}, nil
}
