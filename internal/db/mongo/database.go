package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/labfoundry/expstore/internal/db"
)

// database implements db.Database over *mongo.Database.
type database struct {
	db *mongo.Database
}

func (d *database) Collection(name string) db.Collection {
	return &collection{col: d.db.Collection(name)}
}

func (d *database) ListCollectionNames(ctx context.Context, filter bson.M) ([]string, error) {
	if filter == nil {
		filter = bson.M{}
	}
	names, err := d.db.ListCollectionNames(ctx, filter)
	if err != nil {
		return nil, classify(db.OpListCollections, err)
	}
	return names, nil
}

func (d *database) CreateCollection(ctx context.Context, name string) error {
	if err := d.db.CreateCollection(ctx, name); err != nil {
		return classify(db.OpCreateCollection, err)
	}
	return nil
}

var _ db.Database = (*database)(nil)

// collection implements db.Collection over *mongo.Collection.
type collection struct {
	col *mongo.Collection
}

func (c *collection) Name() string { return c.col.Name() }

func (c *collection) Find(ctx context.Context, filter bson.M) ([]bson.M, error) {
	cursor, err := c.col.Find(ctx, filter)
	if err != nil {
		return nil, classify(db.OpFind, err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classify(db.OpFind, err)
	}
	return docs, nil
}

func (c *collection) FindOne(ctx context.Context, filter bson.M) (bson.M, error) {
	var doc bson.M
	if err := c.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, classify(db.OpFind, err)
	}
	return doc, nil
}

func (c *collection) CountDocuments(ctx context.Context, filter bson.M) (int64, error) {
	n, err := c.col.CountDocuments(ctx, filter)
	if err != nil {
		return 0, classify(db.OpCount, err)
	}
	return n, nil
}

func (c *collection) InsertOne(ctx context.Context, doc bson.M) (any, error) {
	res, err := c.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, classify(db.OpInsert, err)
	}
	return res.InsertedID, nil
}

func (c *collection) InsertMany(ctx context.Context, docs []bson.M) ([]any, error) {
	res, err := c.col.InsertMany(ctx, docs)
	if err != nil {
		return nil, classify(db.OpInsert, err)
	}
	return res.InsertedIDs, nil
}

func (c *collection) UpdateOne(ctx context.Context, filter, update bson.M) (*db.UpdateResult, error) {
	res, err := c.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, classify(db.OpUpdate, err)
	}
	return convertUpdateResult(res), nil
}

func (c *collection) UpdateMany(ctx context.Context, filter, update bson.M) (*db.UpdateResult, error) {
	res, err := c.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return nil, classify(db.OpUpdate, err)
	}
	return convertUpdateResult(res), nil
}

func (c *collection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	res, err := c.col.DeleteOne(ctx, filter)
	if err != nil {
		return 0, classify(db.OpDelete, err)
	}
	return res.DeletedCount, nil
}

func (c *collection) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	res, err := c.col.DeleteMany(ctx, filter)
	if err != nil {
		return 0, classify(db.OpDelete, err)
	}
	return res.DeletedCount, nil
}

func (c *collection) Aggregate(ctx context.Context, pipeline []bson.M) ([]bson.M, error) {
	cursor, err := c.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, classify(db.OpAggregate, err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classify(db.OpAggregate, err)
	}
	return docs, nil
}

func (c *collection) Indexes() db.IndexStore {
	return &indexStore{view: c.col.Indexes()}
}

func (c *collection) SearchIndexes() db.SearchIndexStore {
	return &searchIndexStore{view: c.col.SearchIndexes()}
}

var _ db.Collection = (*collection)(nil)

func convertUpdateResult(res *mongo.UpdateResult) *db.UpdateResult {
	return &db.UpdateResult{
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
	}
}
