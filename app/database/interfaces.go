package database

import (
	"context"

	"github.com/pierrevano/whatson-api/app/catalog"
	"github.com/pierrevano/whatson-api/app/query"
)

// SearchResult pairs the page of titles with the faceted total count; both
// come out of the same aggregation pass.
type SearchResult struct {
	Results      []catalog.Title
	TotalResults int64
}

type TitleRepository interface {
	GetTitle(ctx context.Context, id int, itemType catalog.ItemType) (*catalog.Title, error)
	UpsertTitle(ctx context.Context, title *catalog.Title) error
	ListActiveRefs(ctx context.Context) ([]catalog.TitleRef, error)

	Search(ctx context.Context, stages []query.Stage) (*SearchResult, error)

	CountTitles(ctx context.Context) (int64, error)
	CountNullField(ctx context.Context, field string) (int64, error)
}
