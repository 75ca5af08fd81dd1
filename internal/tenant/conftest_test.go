package tenant

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/labfoundry/expstore/internal/db"
)

// fakeDatabase implements db.Database and records collection creation.
type fakeDatabase struct {
	createFn func(ctx context.Context, name string) error

	mu      sync.Mutex
	created []string
	cols    map[string]*fakeCollection
}

func newFakeDatabase() *fakeDatabase {
	return &fakeDatabase{cols: make(map[string]*fakeCollection)}
}

func (d *fakeDatabase) Collection(name string) db.Collection {
	d.mu.Lock()
	defer d.mu.Unlock()
	if col, ok := d.cols[name]; ok {
		return col
	}
	col := &fakeCollection{name: name, indexes: &fakeIndexStore{}, search: &fakeSearchStore{}}
	d.cols[name] = col
	return col
}

func (d *fakeDatabase) ListCollectionNames(ctx context.Context, filter bson.M) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	want, _ := filter["name"].(string)
	for _, name := range d.created {
		if name == want {
			return []string{name}, nil
		}
	}
	return nil, nil
}

func (d *fakeDatabase) CreateCollection(ctx context.Context, name string) error {
	if d.createFn != nil {
		if err := d.createFn(ctx, name); err != nil {
			return err
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created = append(d.created, name)
	return nil
}

func (d *fakeDatabase) createdNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.created...)
}

func (d *fakeDatabase) collection(name string) *fakeCollection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cols[name]
}

// fakeCollection implements db.Collection; only the index views matter here.
type fakeCollection struct {
	name    string
	indexes *fakeIndexStore
	search  *fakeSearchStore
}

func (c *fakeCollection) Name() string { return c.name }

func (c *fakeCollection) Find(ctx context.Context, filter bson.M) ([]bson.M, error) {
	return nil, nil
}

func (c *fakeCollection) FindOne(ctx context.Context, filter bson.M) (bson.M, error) {
	return nil, db.ErrNoDocuments
}

func (c *fakeCollection) CountDocuments(ctx context.Context, filter bson.M) (int64, error) {
	return 0, nil
}

func (c *fakeCollection) InsertOne(ctx context.Context, doc bson.M) (any, error) {
	return nil, nil
}

func (c *fakeCollection) InsertMany(ctx context.Context, docs []bson.M) ([]any, error) {
	return nil, nil
}

func (c *fakeCollection) UpdateOne(ctx context.Context, filter, update bson.M) (*db.UpdateResult, error) {
	return &db.UpdateResult{}, nil
}

func (c *fakeCollection) UpdateMany(ctx context.Context, filter, update bson.M) (*db.UpdateResult, error) {
	return &db.UpdateResult{}, nil
}

func (c *fakeCollection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	return 0, nil
}

func (c *fakeCollection) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	return 0, nil
}

func (c *fakeCollection) Aggregate(ctx context.Context, pipeline []bson.M) ([]bson.M, error) {
	return nil, nil
}

func (c *fakeCollection) Indexes() db.IndexStore             { return c.indexes }
func (c *fakeCollection) SearchIndexes() db.SearchIndexStore { return c.search }

var _ db.Database = (*fakeDatabase)(nil)
var _ db.Collection = (*fakeCollection)(nil)

// fakeIndexStore records created index models.
type fakeIndexStore struct {
	mu      sync.Mutex
	created []db.IndexModel
}

func (s *fakeIndexStore) List(ctx context.Context) ([]db.IndexSpec, error) {
	return nil, nil
}

func (s *fakeIndexStore) Create(ctx context.Context, model db.IndexModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, model)
	return nil
}

func (s *fakeIndexStore) Drop(ctx context.Context, name string) error { return nil }

func (s *fakeIndexStore) createdModels() []db.IndexModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]db.IndexModel(nil), s.created...)
}

// fakeSearchStore reports every created search index as immediately queryable.
type fakeSearchStore struct {
	mu      sync.Mutex
	defs    map[string]bson.M
	types   map[string]string
	creates int
}

func (s *fakeSearchStore) List(ctx context.Context, name string) ([]db.SearchIndexSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.defs[name]
	if !ok {
		return nil, nil
	}
	return []db.SearchIndexSpec{{
		Name:             name,
		Type:             s.types[name],
		Status:           "READY",
		Queryable:        true,
		LatestDefinition: def,
	}}, nil
}

func (s *fakeSearchStore) Create(ctx context.Context, name, indexType string, definition bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.defs == nil {
		s.defs = make(map[string]bson.M)
		s.types = make(map[string]string)
	}
	s.defs[name] = definition
	s.types[name] = indexType
	s.creates++
	return nil
}

func (s *fakeSearchStore) Update(ctx context.Context, name string, definition bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs[name] = definition
	return nil
}

func (s *fakeSearchStore) Drop(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.defs, name)
	return nil
}
