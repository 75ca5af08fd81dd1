package db

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Database is the unscoped handle to one physical document database.
type Database interface {
	Collection(name string) Collection
	ListCollectionNames(ctx context.Context, filter bson.M) ([]string, error)
	CreateCollection(ctx context.Context, name string) error
}

// Collection provides CRUD and aggregation over one physical collection plus
// access to its index views. All filters and documents are bson maps.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Collection interface {
	Name() string
	Find(ctx context.Context, filter bson.M) ([]bson.M, error)
	FindOne(ctx context.Context, filter bson.M) (bson.M, error)
	CountDocuments(ctx context.Context, filter bson.M) (int64, error)
	InsertOne(ctx context.Context, doc bson.M) (any, error)
	InsertMany(ctx context.Context, docs []bson.M) ([]any, error)
	UpdateOne(ctx context.Context, filter, update bson.M) (*UpdateResult, error)
	UpdateMany(ctx context.Context, filter, update bson.M) (*UpdateResult, error)
	DeleteOne(ctx context.Context, filter bson.M) (int64, error)
	DeleteMany(ctx context.Context, filter bson.M) (int64, error)
	Aggregate(ctx context.Context, pipeline []bson.M) ([]bson.M, error)
	Indexes() IndexStore
	SearchIndexes() SearchIndexStore
}

// UpdateResult reports the effect of an update operation.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
	UpsertedCount int64
}

// IndexModel describes a synchronous secondary index to create.
type IndexModel struct {
	Name               string
	Keys               bson.D
	Unique             bool
	Sparse             bool
	ExpireAfterSeconds *int32
	PartialFilter      bson.M
}

// IndexSpec is the observed state of one synchronous secondary index.
type IndexSpec struct {
	Name string
	Keys bson.D
}

// IndexStore provides lifecycle operations for synchronous secondary indexes.
type IndexStore interface {
	List(ctx context.Context) ([]IndexSpec, error)
	Create(ctx context.Context, model IndexModel) error
	Drop(ctx context.Context, name string) error
}

// SearchIndexSpec is the observed state of one asynchronous search index as
// reported by the backend catalog.
type SearchIndexSpec struct {
	Name             string
	Type             string
	Status           string
	Queryable        bool
	LatestDefinition bson.M
}

// SearchIndexStore provides lifecycle operations for the vendor's
// asynchronous search/vector indexes. Builds happen in the background;
// callers observe progress through List.
type SearchIndexStore interface {
	List(ctx context.Context, name string) ([]SearchIndexSpec, error)
	Create(ctx context.Context, name, indexType string, definition bson.M) error
	Update(ctx context.Context, name string, definition bson.M) error
	Drop(ctx context.Context, name string) error
}

// SearchStatusFailed is the backend catalog status of a terminally failed build.
const SearchStatusFailed = "FAILED"
