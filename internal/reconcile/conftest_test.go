package reconcile

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/labfoundry/expstore/internal/db"
)

// mockIndexes implements db.IndexStore and counts mutations.
type mockIndexes struct {
	listFn   func(ctx context.Context) ([]db.IndexSpec, error)
	createFn func(ctx context.Context, model db.IndexModel) error
	dropFn   func(ctx context.Context, name string) error

	listCalls   int
	createCalls int
	dropCalls   int
	lastCreate  db.IndexModel
}

func (m *mockIndexes) List(ctx context.Context) ([]db.IndexSpec, error) {
	m.listCalls++
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockIndexes) Create(ctx context.Context, model db.IndexModel) error {
	m.createCalls++
	m.lastCreate = model
	if m.createFn != nil {
		return m.createFn(ctx, model)
	}
	return nil
}

func (m *mockIndexes) Drop(ctx context.Context, name string) error {
	m.dropCalls++
	if m.dropFn != nil {
		return m.dropFn(ctx, name)
	}
	return nil
}

// mockSearch implements db.SearchIndexStore and counts mutations.
type mockSearch struct {
	listFn   func(ctx context.Context, name string) ([]db.SearchIndexSpec, error)
	createFn func(ctx context.Context, name, indexType string, definition bson.M) error
	updateFn func(ctx context.Context, name string, definition bson.M) error
	dropFn   func(ctx context.Context, name string) error

	listCalls   int
	createCalls int
	updateCalls int
	dropCalls   int
}

func (m *mockSearch) List(ctx context.Context, name string) ([]db.SearchIndexSpec, error) {
	m.listCalls++
	if m.listFn != nil {
		return m.listFn(ctx, name)
	}
	return nil, nil
}

func (m *mockSearch) Create(ctx context.Context, name, indexType string, definition bson.M) error {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, name, indexType, definition)
	}
	return nil
}

func (m *mockSearch) Update(ctx context.Context, name string, definition bson.M) error {
	m.updateCalls++
	if m.updateFn != nil {
		return m.updateFn(ctx, name, definition)
	}
	return nil
}

func (m *mockSearch) Drop(ctx context.Context, name string) error {
	m.dropCalls++
	if m.dropFn != nil {
		return m.dropFn(ctx, name)
	}
	return nil
}

// newTestReconciler returns a reconciler with millisecond polling so timeout
// paths run fast.
func newTestReconciler(t *testing.T) (*Reconciler, *mockIndexes, *mockSearch) {
	t.Helper()
	mi := &mockIndexes{}
	ms := &mockSearch{}
	r := New("alpha_items", "alpha", mi, ms, nil).
		WithPolling(time.Millisecond, 50*time.Millisecond, 50*time.Millisecond)
	return r, mi, ms
}

func readySpec(name string, definition bson.M) db.SearchIndexSpec {
	return db.SearchIndexSpec{
		Name:             name,
		Type:             "vectorSearch",
		Status:           "READY",
		Queryable:        true,
		LatestDefinition: definition,
	}
}

func pendingSpec(name string, definition bson.M) db.SearchIndexSpec {
	return db.SearchIndexSpec{
		Name:             name,
		Type:             "vectorSearch",
		Status:           "PENDING",
		Queryable:        false,
		LatestDefinition: definition,
	}
}
