package query

import (
	"math"

	"github.com/pierrevano/whatson-api/app/catalog"
	"github.com/pierrevano/whatson-api/app/cfg"
)

// Stage is one unit of the retrieval pipeline. The concrete variants form a
// closed union; the retrieval executor compiles them into datastore
// operations. Stage order is fixed relative to dependencies and checked by a
// single ordering test.
type Stage interface {
	stage()
}

// MatchID matches exactly one title by primary id or by a source-native id,
// bypassing every other filter. Primary ids are only unique per item type
// (movie and TV namespaces overlap), so ItemType disambiguates when set; its
// zero value matches both types.
type MatchID struct {
	ID       *int
	ItemType catalog.ItemType
	Source   string
	VID      string
}

// MatchType restricts item_type and is_active; either list may name both
// values, which compiles to an OR.
type MatchType struct {
	ItemTypes    []catalog.ItemType
	ActiveStates []bool
}

// SeasonFilter is a membership test over seasons_number. When OpenUpper is
// set, season counts above Threshold also match (the open upper bucket).
type SeasonFilter struct {
	Seasons   []int
	OpenUpper bool
	Threshold int
}

// StatusFilter matches canonical TV show statuses.
type StatusFilter struct {
	Statuses []string
}

// PlatformFilter requires at least one linked platform out of the set.
type PlatformFilter struct {
	Platforms []string
}

// RatingPresence drops titles where every consulted rating field is null;
// titles with zero signal are never returned.
type RatingPresence struct {
	Fields []string
}

// Normalize attaches ratings_average and popularity_average, plus a sort key
// that is +Inf when popularity is entirely absent so popularity-less titles
// sort last.
type Normalize struct {
	Ratings    []ScaledField
	Popularity []ScaledField
}

// MinRating keeps titles whose ratings_average meets the threshold.
type MinRating struct {
	Threshold float64
}

// TitleSearch is a case-insensitive substring match on the title.
type TitleSearch struct {
	Query string
}

// Sort is the deterministic ordering: popularity sort key ascending,
// popularity_average ascending, ratings_average descending, title ascending.
type Sort struct{}

// Page computes total_results and the skip/limit window in one pass so the
// two numbers are always consistent.
type Page struct {
	Page  int
	Limit int
}

func (MatchID) stage()        {}
func (MatchType) stage()      {}
func (SeasonFilter) stage()   {}
func (StatusFilter) stage()   {}
func (PlatformFilter) stage() {}
func (RatingPresence) stage() {}
func (Normalize) stage()      {}
func (MinRating) stage()      {}
func (TitleSearch) stage()    {}
func (Sort) stage()           {}
func (Page) stage()           {}

// Build turns validated parameters into the ordered stage sequence. Stages
// without matching filters are omitted; relative order never changes.
func Build(params *Params) []Stage {
	if params.DirectID != nil {
		return []Stage{
			MatchID{ID: params.DirectID, ItemType: params.DirectItemType},
			Normalize{Ratings: params.RatingsFields, Popularity: params.PopFields},
			Page{Page: 1, Limit: 1},
		}
	}
	if params.SourceLookup != nil {
		return []Stage{
			MatchID{Source: params.SourceLookup.Source, VID: params.SourceLookup.ID, ItemType: params.DirectItemType},
			Normalize{Ratings: params.RatingsFields, Popularity: params.PopFields},
			Page{Page: 1, Limit: 1},
		}
	}

	stages := []Stage{
		MatchType{ItemTypes: params.ItemTypes, ActiveStates: params.ActiveStates},
	}

	if tvShowOnly(params.ItemTypes) {
		if len(params.Seasons) > 0 {
			stages = append(stages, buildSeasonFilter(params.Seasons))
		}
		if len(params.Statuses) > 0 {
			stages = append(stages, StatusFilter{Statuses: params.Statuses})
		}
	}

	if len(params.Platforms) > 0 {
		stages = append(stages, PlatformFilter{Platforms: params.Platforms})
	}

	// An entirely-invalid token list leaves nothing to consult; the presence
	// filter is omitted then instead of excluding the whole collection.
	if len(params.RatingsFields) > 0 {
		presenceFields := make([]string, 0, len(params.RatingsFields))
		for _, field := range params.RatingsFields {
			presenceFields = append(presenceFields, field.Path)
		}
		stages = append(stages, RatingPresence{Fields: presenceFields})
	}

	stages = append(stages, Normalize{Ratings: params.RatingsFields, Popularity: params.PopFields})

	if !math.IsInf(params.MinimumRating, -1) {
		stages = append(stages, MinRating{Threshold: params.MinimumRating})
	}

	if params.TitleSearch != "" {
		stages = append(stages, TitleSearch{Query: params.TitleSearch})
	}

	stages = append(stages,
		Sort{},
		Page{Page: params.Page, Limit: params.Limit},
	)

	return stages
}

func tvShowOnly(itemTypes []catalog.ItemType) bool {
	return len(itemTypes) == 1 && itemTypes[0] == catalog.ItemTypeTVShow
}

// buildSeasonFilter switches to the open upper bucket as soon as any
// requested value reaches the configured threshold, so a request for "5"
// also returns 6, 7, 8... season shows.
func buildSeasonFilter(seasons []int) SeasonFilter {
	threshold := cfg.Get().MaxSeasonsBucket

	filter := SeasonFilter{Seasons: seasons, Threshold: threshold}
	for _, value := range seasons {
		if value >= threshold {
			filter.OpenUpper = true
			break
		}
	}
	return filter
}
