package scope

import (
	"context"
	"maps"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/labfoundry/expstore/internal/db"
	"github.com/labfoundry/expstore/internal/domain"
	"github.com/labfoundry/expstore/internal/reconcile"
)

// vectorSearchStage is the aggregation stage the backend requires to be first
// in the pipeline. The scope filter is merged into its filter sub-field
// instead of being prepended as a $match stage.
const vectorSearchStage = "$vectorSearch"

// Collection wraps one physical collection for one tenant. Every read filter
// is combined with the tenant's read-scope filter and every written document
// is stamped with the tenant's write scope. The wrapper holds no mutable
// state beyond the immutable scope, so it is safe for concurrent use.
type Collection struct {
	scope domain.TenantScope
	col   db.Collection
	recon *reconcile.Reconciler
}

func newCollection(scope domain.TenantScope, col db.Collection, log *zap.Logger) *Collection {
	return &Collection{
		scope: scope,
		col:   col,
		recon: reconcile.New(col.Name(), scope.WriteScope(), col.Indexes(), col.SearchIndexes(), log),
	}
}

func (c *Collection) withPolling(interval, buildTimeout, dropTimeout time.Duration) *Collection {
	c.recon.WithPolling(interval, buildTimeout, dropTimeout)
	return c
}

// Name returns the physical collection name.
func (c *Collection) Name() string { return c.col.Name() }

// IndexManager returns the reconciler for this collection's administrative
// index operations. Indexes apply to the whole physical collection, so these
// operations bypass scoping entirely.
func (c *Collection) IndexManager() *reconcile.Reconciler { return c.recon }

// Find returns the documents matching the caller's filter within read scope.
func (c *Collection) Find(ctx context.Context, filter bson.M) ([]bson.M, error) {
	return c.col.Find(ctx, c.scoped(filter))
}

// FindOne returns one document matching the caller's filter within read scope.
func (c *Collection) FindOne(ctx context.Context, filter bson.M) (bson.M, error) {
	return c.col.FindOne(ctx, c.scoped(filter))
}

// CountDocuments counts documents matching the caller's filter within read scope.
func (c *Collection) CountDocuments(ctx context.Context, filter bson.M) (int64, error) {
	return c.col.CountDocuments(ctx, c.scoped(filter))
}

// InsertOne writes a stamped copy of doc. The caller's document is not modified.
func (c *Collection) InsertOne(ctx context.Context, doc bson.M) (any, error) {
	return c.col.InsertOne(ctx, c.stamp(doc))
}

// InsertMany writes stamped copies of docs. The caller's documents are not modified.
func (c *Collection) InsertMany(ctx context.Context, docs []bson.M) ([]any, error) {
	stamped := make([]bson.M, len(docs))
	for i, doc := range docs {
		stamped[i] = c.stamp(doc)
	}
	return c.col.InsertMany(ctx, stamped)
}

// UpdateOne applies update to the first in-scope document matching filter.
// Scoping constrains the match filter only, never the update document.
func (c *Collection) UpdateOne(ctx context.Context, filter, update bson.M) (*db.UpdateResult, error) {
	return c.col.UpdateOne(ctx, c.scoped(filter), update)
}

// UpdateMany applies update to every in-scope document matching filter.
func (c *Collection) UpdateMany(ctx context.Context, filter, update bson.M) (*db.UpdateResult, error) {
	return c.col.UpdateMany(ctx, c.scoped(filter), update)
}

// DeleteOne removes the first in-scope document matching filter.
func (c *Collection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	return c.col.DeleteOne(ctx, c.scoped(filter))
}

// DeleteMany removes every in-scope document matching filter.
func (c *Collection) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	return c.col.DeleteMany(ctx, c.scoped(filter))
}

// Aggregate runs the pipeline with the scope condition injected. An empty
// pipeline becomes a single scope $match. A pipeline starting with the
// vector-search stage keeps that stage first and gets the scope condition
// merged into the stage's own filter; any other pipeline gets a scope $match
// prepended. The caller's pipeline slice and stages are never mutated.
func (c *Collection) Aggregate(ctx context.Context, pipeline []bson.M) ([]bson.M, error) {
	return c.col.Aggregate(ctx, c.scopedPipeline(pipeline))
}

// scopeFilter is the visibility predicate of this tenant's read scopes.
func (c *Collection) scopeFilter() bson.M {
	return bson.M{domain.ScopeField: bson.M{"$in": c.scope.ReadScopes()}}
}

// scoped combines the caller's filter with the scope filter. The caller's
// filter is never dropped or overridden.
func (c *Collection) scoped(filter bson.M) bson.M {
	if len(filter) == 0 {
		return c.scopeFilter()
	}
	return bson.M{"$and": []bson.M{filter, c.scopeFilter()}}
}

// stamp returns a copy of doc with the scope field set to the write scope.
func (c *Collection) stamp(doc bson.M) bson.M {
	out := maps.Clone(doc)
	if out == nil {
		out = bson.M{}
	}
	out[domain.ScopeField] = c.scope.WriteScope()
	return out
}

func (c *Collection) scopedPipeline(pipeline []bson.M) []bson.M {
	if len(pipeline) == 0 {
		return []bson.M{{"$match": c.scopeFilter()}}
	}
	if stage, ok := asStageBody(pipeline[0][vectorSearchStage]); ok {
		out := make([]bson.M, len(pipeline))
		out[0] = bson.M{vectorSearchStage: c.mergeStageFilter(stage)}
		copy(out[1:], pipeline[1:])
		return out
	}
	out := make([]bson.M, 0, len(pipeline)+1)
	out = append(out, bson.M{"$match": c.scopeFilter()})
	return append(out, pipeline...)
}

// mergeStageFilter copies the vector-search stage body and ANDs the scope
// filter into its filter sub-field.
func (c *Collection) mergeStageFilter(stage bson.M) bson.M {
	out := maps.Clone(stage)
	if user, ok := asStageBody(out["filter"]); ok && len(user) > 0 {
		out["filter"] = bson.M{"$and": []bson.M{user, c.scopeFilter()}}
	} else {
		out["filter"] = c.scopeFilter()
	}
	return out
}

// asStageBody normalizes the document shapes a stage body may legally carry.
// The pipeline element type is bson.M, but the stage value is any, so callers
// hand in bson.M, plain maps or bson.D interchangeably.
func asStageBody(v any) (bson.M, bool) {
	switch t := v.(type) {
	case bson.M:
		return t, true
	case map[string]any:
		return bson.M(t), true
	case bson.D:
		m := make(bson.M, len(t))
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return m, true
	}
	return nil, false
}
