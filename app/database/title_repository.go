package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pierrevano/whatson-api/app/catalog"
	"github.com/pierrevano/whatson-api/app/query"
)

var _ TitleRepository = (*titleRepository)(nil)

type titleRepository struct {
	db *DB
}

func NewTitleRepository(db *DB) TitleRepository {
	return &titleRepository{db: db}
}

func (r *titleRepository) GetTitle(ctx context.Context, id int, itemType catalog.ItemType) (*catalog.Title, error) {
	filter := bson.D{
		{Key: "id", Value: id},
		{Key: "item_type", Value: itemType},
	}

	var title catalog.Title
	err := r.db.Titles().FindOne(ctx, filter).Decode(&title)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get title: %w", err)
	}

	return &title, nil
}

// UpsertTitle writes the title keyed on (id, item_type), so re-running
// ingestion is idempotent.
func (r *titleRepository) UpsertTitle(ctx context.Context, title *catalog.Title) error {
	filter := bson.D{
		{Key: "id", Value: title.ID},
		{Key: "item_type", Value: title.ItemType},
	}

	_, err := r.db.Titles().ReplaceOne(ctx, filter, title, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert title: %w", err)
	}

	return nil
}

func (r *titleRepository) ListActiveRefs(ctx context.Context) ([]catalog.TitleRef, error) {
	opts := options.Find().
		SetProjection(bson.D{
			{Key: "id", Value: 1},
			{Key: "item_type", Value: 1},
		}).
		SetSort(bson.D{
			{Key: "item_type", Value: 1},
			{Key: "id", Value: 1},
		})

	cursor, err := r.db.Titles().Find(ctx, bson.D{{Key: "is_active", Value: true}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list active titles: %w", err)
	}
	defer cursor.Close(ctx)

	var refs []catalog.TitleRef
	for cursor.Next(ctx) {
		var doc struct {
			ID       int              `bson:"id"`
			ItemType catalog.ItemType `bson:"item_type"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode title ref: %w", err)
		}
		refs = append(refs, catalog.TitleRef{ID: doc.ID, ItemType: doc.ItemType})
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating title refs: %w", err)
	}

	return refs, nil
}

// Search compiles the stage sequence into one aggregation and runs it. The
// faceted last stage yields the page of results and the pre-pagination total
// in the same pass.
func (r *titleRepository) Search(ctx context.Context, stages []query.Stage) (*SearchResult, error) {
	pipeline, err := CompilePipeline(stages)
	if err != nil {
		return nil, err
	}

	cursor, err := r.db.Titles().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to run aggregation: %w", err)
	}
	defer cursor.Close(ctx)

	var facets []struct {
		Results []catalog.Title `bson:"results"`
		Total   []struct {
			Count int64 `bson:"count"`
		} `bson:"total"`
	}
	if err := cursor.All(ctx, &facets); err != nil {
		return nil, fmt.Errorf("failed to decode aggregation result: %w", err)
	}

	result := &SearchResult{}
	if len(facets) > 0 {
		result.Results = facets[0].Results
		if len(facets[0].Total) > 0 {
			result.TotalResults = facets[0].Total[0].Count
		}
	}

	return result, nil
}

func (r *titleRepository) CountTitles(ctx context.Context) (int64, error) {
	count, err := r.db.Titles().CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count titles: %w", err)
	}
	return count, nil
}

// CountNullField counts documents where the field is null or missing.
func (r *titleRepository) CountNullField(ctx context.Context, field string) (int64, error) {
	count, err := r.db.Titles().CountDocuments(ctx, bson.D{{Key: field, Value: nil}})
	if err != nil {
		return 0, fmt.Errorf("failed to count null values for %s: %w", field, err)
	}
	return count, nil
}
