package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/labfoundry/expstore/internal/db"
)

// indexStore implements db.IndexStore over mongo.IndexView.
type indexStore struct {
	view mongo.IndexView
}

func (s *indexStore) List(ctx context.Context) ([]db.IndexSpec, error) {
	cursor, err := s.view.List(ctx)
	if err != nil {
		return nil, classify(db.OpListIndexes, err)
	}
	var raw []struct {
		Name string `bson:"name"`
		Key  bson.D `bson:"key"`
	}
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, classify(db.OpListIndexes, err)
	}
	specs := make([]db.IndexSpec, 0, len(raw))
	for _, r := range raw {
		specs = append(specs, db.IndexSpec{Name: r.Name, Keys: r.Key})
	}
	return specs, nil
}

func (s *indexStore) Create(ctx context.Context, model db.IndexModel) error {
	opts := options.Index().SetName(model.Name)
	if model.Unique {
		opts.SetUnique(true)
	}
	if model.Sparse {
		opts.SetSparse(true)
	}
	if model.ExpireAfterSeconds != nil {
		opts.SetExpireAfterSeconds(*model.ExpireAfterSeconds)
	}
	if model.PartialFilter != nil {
		opts.SetPartialFilterExpression(model.PartialFilter)
	}
	_, err := s.view.CreateOne(ctx, mongo.IndexModel{Keys: model.Keys, Options: opts})
	if err != nil {
		return classify(db.OpCreateIndex, err)
	}
	return nil
}

func (s *indexStore) Drop(ctx context.Context, name string) error {
	if err := s.view.DropOne(ctx, name); err != nil {
		return classify(db.OpDropIndex, err)
	}
	return nil
}

var _ db.IndexStore = (*indexStore)(nil)

// searchIndexStore implements db.SearchIndexStore over mongo.SearchIndexView.
// Create/Update only enqueue work; the backend builds asynchronously and the
// catalog returned by List carries build status.
type searchIndexStore struct {
	view mongo.SearchIndexView
}

func (s *searchIndexStore) List(ctx context.Context, name string) ([]db.SearchIndexSpec, error) {
	cursor, err := s.view.List(ctx, options.SearchIndexes().SetName(name))
	if err != nil {
		return nil, classify(db.OpListSearchIndexes, err)
	}
	var raw []struct {
		Name             string `bson:"name"`
		Type             string `bson:"type"`
		Status           string `bson:"status"`
		Queryable        bool   `bson:"queryable"`
		LatestDefinition bson.M `bson:"latestDefinition"`
	}
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, classify(db.OpListSearchIndexes, err)
	}
	specs := make([]db.SearchIndexSpec, 0, len(raw))
	for _, r := range raw {
		specs = append(specs, db.SearchIndexSpec{
			Name:             r.Name,
			Type:             r.Type,
			Status:           r.Status,
			Queryable:        r.Queryable,
			LatestDefinition: r.LatestDefinition,
		})
	}
	return specs, nil
}

func (s *searchIndexStore) Create(ctx context.Context, name, indexType string, definition bson.M) error {
	model := mongo.SearchIndexModel{
		Definition: definition,
		Options:    options.SearchIndexes().SetName(name).SetType(indexType),
	}
	if _, err := s.view.CreateOne(ctx, model); err != nil {
		return classify(db.OpCreateSearchIndex, err)
	}
	return nil
}

func (s *searchIndexStore) Update(ctx context.Context, name string, definition bson.M) error {
	if err := s.view.UpdateOne(ctx, name, definition); err != nil {
		return classify(db.OpUpdateSearchIndex, err)
	}
	return nil
}

func (s *searchIndexStore) Drop(ctx context.Context, name string) error {
	if err := s.view.DropOne(ctx, name); err != nil {
		return classify(db.OpDropSearchIndex, err)
	}
	return nil
}

var _ db.SearchIndexStore = (*searchIndexStore)(nil)
