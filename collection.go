package expstore

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/labfoundry/expstore/internal/scope"
)

// UpdateResult reports the effect of an update operation.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
	UpsertedCount int64
}

// Collection is a tenant-scoped collection handle. Reads are confined to the
// tenant's read scopes and writes are stamped with its id; callers never see
// or set the scope field themselves.
type Collection struct {
	inner *scope.Collection
}

// Name returns the physical collection name.
func (c *Collection) Name() string { return c.inner.Name() }

// Find returns the documents matching filter within read scope.
func (c *Collection) Find(ctx context.Context, filter bson.M) ([]bson.M, error) {
	return c.inner.Find(ctx, filter)
}

// FindOne returns one document matching filter within read scope.
func (c *Collection) FindOne(ctx context.Context, filter bson.M) (bson.M, error) {
	return c.inner.FindOne(ctx, filter)
}

// CountDocuments counts documents matching filter within read scope.
func (c *Collection) CountDocuments(ctx context.Context, filter bson.M) (int64, error) {
	return c.inner.CountDocuments(ctx, filter)
}

// InsertOne writes a stamped copy of doc.
func (c *Collection) InsertOne(ctx context.Context, doc bson.M) (any, error) {
	return c.inner.InsertOne(ctx, doc)
}

// InsertMany writes stamped copies of docs.
func (c *Collection) InsertMany(ctx context.Context, docs []bson.M) ([]any, error) {
	return c.inner.InsertMany(ctx, docs)
}

// UpdateOne applies update to the first in-scope document matching filter.
func (c *Collection) UpdateOne(ctx context.Context, filter, update bson.M) (*UpdateResult, error) {
	res, err := c.inner.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	return &UpdateResult{
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
	}, nil
}

// UpdateMany applies update to every in-scope document matching filter.
func (c *Collection) UpdateMany(ctx context.Context, filter, update bson.M) (*UpdateResult, error) {
	res, err := c.inner.UpdateMany(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	return &UpdateResult{
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
	}, nil
}

// DeleteOne removes the first in-scope document matching filter.
func (c *Collection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	return c.inner.DeleteOne(ctx, filter)
}

// DeleteMany removes every in-scope document matching filter.
func (c *Collection) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	return c.inner.DeleteMany(ctx, filter)
}

// Aggregate runs the pipeline with the tenant scope injected. A pipeline
// starting with $vectorSearch keeps that stage first; the scope condition is
// merged into the stage's filter.
func (c *Collection) Aggregate(ctx context.Context, pipeline []bson.M) ([]bson.M, error) {
	return c.inner.Aggregate(ctx, pipeline)
}
