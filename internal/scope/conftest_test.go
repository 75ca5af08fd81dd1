package scope

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/labfoundry/expstore/internal/db"
	"github.com/labfoundry/expstore/internal/domain"
)

// mockDatabase implements db.Database for tests.
type mockDatabase struct {
	collectionFn       func(name string) db.Collection
	listNamesFn        func(ctx context.Context, filter bson.M) ([]string, error)
	createCollectionFn func(ctx context.Context, name string) error

	listNamesCalls        int
	createCollectionCalls int
}

func (m *mockDatabase) Collection(name string) db.Collection {
	if m.collectionFn != nil {
		return m.collectionFn(name)
	}
	return &mockCollection{name: name}
}

func (m *mockDatabase) ListCollectionNames(ctx context.Context, filter bson.M) ([]string, error) {
	m.listNamesCalls++
	if m.listNamesFn != nil {
		return m.listNamesFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockDatabase) CreateCollection(ctx context.Context, name string) error {
	m.createCollectionCalls++
	if m.createCollectionFn != nil {
		return m.createCollectionFn(ctx, name)
	}
	return nil
}

// mockCollection implements db.Collection and records the rewritten
// filters, documents and pipelines the proxy hands to the driver.
type mockCollection struct {
	name string

	lastFilter   bson.M
	lastUpdate   bson.M
	lastDocs     []bson.M
	lastPipeline []bson.M

	findFn func(ctx context.Context, filter bson.M) ([]bson.M, error)
}

func (m *mockCollection) Name() string { return m.name }

func (m *mockCollection) Find(ctx context.Context, filter bson.M) ([]bson.M, error) {
	m.lastFilter = filter
	if m.findFn != nil {
		return m.findFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockCollection) FindOne(_ context.Context, filter bson.M) (bson.M, error) {
	m.lastFilter = filter
	return bson.M{}, nil
}

func (m *mockCollection) CountDocuments(_ context.Context, filter bson.M) (int64, error) {
	m.lastFilter = filter
	return 0, nil
}

func (m *mockCollection) InsertOne(_ context.Context, doc bson.M) (any, error) {
	m.lastDocs = []bson.M{doc}
	return nil, nil
}

func (m *mockCollection) InsertMany(_ context.Context, docs []bson.M) ([]any, error) {
	m.lastDocs = docs
	return nil, nil
}

func (m *mockCollection) UpdateOne(_ context.Context, filter, update bson.M) (*db.UpdateResult, error) {
	m.lastFilter = filter
	m.lastUpdate = update
	return &db.UpdateResult{}, nil
}

func (m *mockCollection) UpdateMany(_ context.Context, filter, update bson.M) (*db.UpdateResult, error) {
	m.lastFilter = filter
	m.lastUpdate = update
	return &db.UpdateResult{}, nil
}

func (m *mockCollection) DeleteOne(_ context.Context, filter bson.M) (int64, error) {
	m.lastFilter = filter
	return 0, nil
}

func (m *mockCollection) DeleteMany(_ context.Context, filter bson.M) (int64, error) {
	m.lastFilter = filter
	return 0, nil
}

func (m *mockCollection) Aggregate(_ context.Context, pipeline []bson.M) ([]bson.M, error) {
	m.lastPipeline = pipeline
	return nil, nil
}

func (m *mockCollection) Indexes() db.IndexStore             { return &mockIndexStore{} }
func (m *mockCollection) SearchIndexes() db.SearchIndexStore { return &mockSearchStore{} }

type mockIndexStore struct{}

func (m *mockIndexStore) List(_ context.Context) ([]db.IndexSpec, error)  { return nil, nil }
func (m *mockIndexStore) Create(_ context.Context, _ db.IndexModel) error { return nil }
func (m *mockIndexStore) Drop(_ context.Context, _ string) error          { return nil }

type mockSearchStore struct{}

func (m *mockSearchStore) List(_ context.Context, _ string) ([]db.SearchIndexSpec, error) {
	return nil, nil
}
func (m *mockSearchStore) Create(_ context.Context, _, _ string, _ bson.M) error { return nil }
func (m *mockSearchStore) Update(_ context.Context, _ string, _ bson.M) error    { return nil }
func (m *mockSearchStore) Drop(_ context.Context, _ string) error                { return nil }

func testScope(t *testing.T, write string, read ...string) domain.TenantScope {
	t.Helper()
	ts, err := domain.NewTenantScope(write, read)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ts
}

// newTestCollection builds a scoped collection wrapper over a recording mock.
func newTestCollection(t *testing.T, write string, read ...string) (*Collection, *mockCollection) {
	t.Helper()
	mc := &mockCollection{name: write + "_items"}
	return newCollection(testScope(t, write, read...), mc, nil), mc
}
