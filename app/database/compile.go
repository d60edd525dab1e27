package database

import (
	"fmt"
	"math"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pierrevano/whatson-api/app/query"
)

// CompilePipeline translates the typed stage sequence into a MongoDB
// aggregation pipeline. This is the executor side of the boundary: the query
// package never sees datastore types.
func CompilePipeline(stages []query.Stage) (mongo.Pipeline, error) {
	var pipeline mongo.Pipeline

	for _, stage := range stages {
		switch s := stage.(type) {
		case query.MatchID:
			pipeline = append(pipeline, compileMatchID(s))
		case query.MatchType:
			pipeline = append(pipeline, compileMatchType(s))
		case query.SeasonFilter:
			pipeline = append(pipeline, compileSeasonFilter(s))
		case query.StatusFilter:
			pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{
				{Key: "status", Value: bson.D{{Key: "$in", Value: s.Statuses}}},
			}}})
		case query.PlatformFilter:
			pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{
				{Key: "platforms.name", Value: bson.D{{Key: "$in", Value: s.Platforms}}},
			}}})
		case query.RatingPresence:
			pipeline = append(pipeline, compileRatingPresence(s))
		case query.Normalize:
			pipeline = append(pipeline, compileNormalize(s)...)
		case query.MinRating:
			pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{
				{Key: "ratings_average", Value: bson.D{{Key: "$gte", Value: s.Threshold}}},
			}}})
		case query.TitleSearch:
			pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{
				{Key: "title", Value: primitive.Regex{Pattern: regexp.QuoteMeta(s.Query), Options: "i"}},
			}}})
		case query.Sort:
			pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.D{
				{Key: "popularity_sort", Value: 1},
				{Key: "popularity_average", Value: 1},
				{Key: "ratings_average", Value: -1},
				{Key: "title", Value: 1},
			}}})
		case query.Page:
			pipeline = append(pipeline, compilePage(s))
		default:
			return nil, fmt.Errorf("unknown pipeline stage type %T", stage)
		}
	}

	return pipeline, nil
}

func compileMatchID(s query.MatchID) bson.D {
	var match bson.D
	if s.ID != nil {
		match = bson.D{{Key: "id", Value: *s.ID}}
	} else {
		match = bson.D{{Key: "ratings." + s.Source + ".id", Value: s.VID}}
	}

	// Ids repeat across the movie and TV namespaces, so an unconstrained
	// match could resolve to the wrong document.
	if s.ItemType != "" {
		match = append(match, bson.E{Key: "item_type", Value: s.ItemType})
	}

	return bson.D{{Key: "$match", Value: match}}
}

func compileMatchType(s query.MatchType) bson.D {
	match := bson.D{}

	if len(s.ItemTypes) == 1 {
		match = append(match, bson.E{Key: "item_type", Value: s.ItemTypes[0]})
	} else if len(s.ItemTypes) > 1 {
		match = append(match, bson.E{Key: "item_type", Value: bson.D{{Key: "$in", Value: s.ItemTypes}}})
	}

	if len(s.ActiveStates) == 1 {
		match = append(match, bson.E{Key: "is_active", Value: s.ActiveStates[0]})
	} else if len(s.ActiveStates) > 1 {
		match = append(match, bson.E{Key: "is_active", Value: bson.D{{Key: "$in", Value: s.ActiveStates}}})
	}

	return bson.D{{Key: "$match", Value: match}}
}

func compileSeasonFilter(s query.SeasonFilter) bson.D {
	membership := bson.D{{Key: "seasons_number", Value: bson.D{{Key: "$in", Value: s.Seasons}}}}

	if !s.OpenUpper {
		return bson.D{{Key: "$match", Value: membership}}
	}

	return bson.D{{Key: "$match", Value: bson.D{
		{Key: "$or", Value: bson.A{
			membership,
			bson.D{{Key: "seasons_number", Value: bson.D{{Key: "$gt", Value: s.Threshold}}}},
		}},
	}}}
}

func compileRatingPresence(s query.RatingPresence) bson.D {
	clauses := bson.A{}
	for _, field := range s.Fields {
		clauses = append(clauses, bson.D{
			{Key: field, Value: bson.D{{Key: "$ne", Value: nil}}},
		})
	}
	return bson.D{{Key: "$match", Value: bson.D{{Key: "$or", Value: clauses}}}}
}

func compileNormalize(s query.Normalize) []bson.D {
	addAverages := bson.D{{Key: "$addFields", Value: bson.D{
		{Key: "ratings_average", Value: roundedAverage(s.Ratings)},
		{Key: "popularity_average", Value: scaledAverage(s.Popularity)},
	}}}

	// Separate stage so the sort key can reference popularity_average.
	// Titles with no popularity data sort last, not first.
	addSortKey := bson.D{{Key: "$addFields", Value: bson.D{
		{Key: "popularity_sort", Value: bson.D{
			{Key: "$ifNull", Value: bson.A{"$popularity_average", math.Inf(1)}},
		}},
	}}}

	return []bson.D{addAverages, addSortKey}
}

// scaledAverage builds $avg over the normalized expressions. $divide yields
// null for missing operands and $avg ignores nulls, so a title with no
// values averages to null rather than dividing by zero.
func scaledAverage(fields []query.ScaledField) any {
	if len(fields) == 0 {
		return nil
	}

	exprs := bson.A{}
	for _, field := range fields {
		exprs = append(exprs, bson.D{
			{Key: "$divide", Value: bson.A{"$" + field.Path, field.Divisor}},
		})
	}
	return bson.D{{Key: "$avg", Value: exprs}}
}

func roundedAverage(fields []query.ScaledField) any {
	average := scaledAverage(fields)
	if average == nil {
		return nil
	}
	return bson.D{{Key: "$round", Value: bson.A{average, 1}}}
}

func compilePage(s query.Page) bson.D {
	skip := int64(s.Page-1) * int64(s.Limit)

	return bson.D{{Key: "$facet", Value: bson.D{
		{Key: "results", Value: bson.A{
			bson.D{{Key: "$skip", Value: skip}},
			bson.D{{Key: "$limit", Value: int64(s.Limit)}},
		}},
		{Key: "total", Value: bson.A{
			bson.D{{Key: "$count", Value: "count"}},
		}},
	}}}
}
