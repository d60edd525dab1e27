package query

import (
	"math"
	"net/url"
	"testing"

	"github.com/pierrevano/whatson-api/app/catalog"
)

// stageOrder maps every stage variant to its fixed position so the ordering
// invariant can be checked over any built sequence.
func stageOrder(stage Stage) int {
	switch stage.(type) {
	case MatchID:
		return 0
	case MatchType:
		return 1
	case SeasonFilter:
		return 2
	case StatusFilter:
		return 3
	case PlatformFilter:
		return 4
	case RatingPresence:
		return 5
	case Normalize:
		return 6
	case MinRating:
		return 7
	case TitleSearch:
		return 8
	case Sort:
		return 9
	case Page:
		return 10
	default:
		return -1
	}
}

func TestBuildStageOrdering(t *testing.T) {
	setupTestCfg()

	values := url.Values{}
	values.Set("item_type", "tvshow")
	values.Set("seasons_number", "1,2")
	values.Set("status", "ongoing")
	values.Set("platforms", "Netflix")
	values.Set("minimum_ratings", "3.5")
	values.Set("title", "breaking")

	params, err := ParseParams(values)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	stages := Build(params)
	previous := -1
	for i, stage := range stages {
		order := stageOrder(stage)
		if order < 0 {
			t.Fatalf("Unknown stage at position %d: %T", i, stage)
		}
		if order <= previous {
			t.Errorf("Stage %T out of order at position %d", stage, i)
		}
		previous = order
	}

	// The full filter set produces every stage except MatchID.
	if len(stages) != 10 {
		t.Errorf("Expected 10 stages, got %d", len(stages))
	}
}

func TestBuildOmitsEmptyFilters(t *testing.T) {
	setupTestCfg()

	params, err := ParseParams(url.Values{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	stages := Build(params)
	for _, stage := range stages {
		switch stage.(type) {
		case SeasonFilter, StatusFilter, PlatformFilter, MinRating, TitleSearch:
			t.Errorf("Stage %T should be omitted without matching filters", stage)
		}
	}
}

func TestBuildSeasonFiltersIgnoredForMovies(t *testing.T) {
	setupTestCfg()

	values := url.Values{}
	values.Set("item_type", "movie,tvshow")
	values.Set("seasons_number", "2")
	values.Set("status", "ongoing")

	params, err := ParseParams(values)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// TV-specific filters only apply to a pure tvshow query.
	for _, stage := range Build(params) {
		switch stage.(type) {
		case SeasonFilter, StatusFilter:
			t.Errorf("Stage %T must not apply to a mixed item_type query", stage)
		}
	}
}

func TestBuildSeasonFilterOpenUpperBucket(t *testing.T) {
	setupTestCfg()

	filter := buildSeasonFilter([]int{1, 2})
	if filter.OpenUpper {
		t.Error("Expected closed bucket for seasons below the threshold")
	}

	filter = buildSeasonFilter([]int{5})
	if !filter.OpenUpper {
		t.Error("Expected open upper bucket at the threshold")
	}
	if filter.Threshold != 5 {
		t.Errorf("Expected threshold 5, got %d", filter.Threshold)
	}
}

func TestBuildDirectIDBypassesFilters(t *testing.T) {
	setupTestCfg()

	values := url.Values{}
	values.Set("id", "1396")
	values.Set("platforms", "Netflix")

	params, err := ParseParams(values)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	stages := Build(params)
	if len(stages) != 3 {
		t.Fatalf("Expected MatchID, Normalize and Page only, got %d stages", len(stages))
	}

	matchID, ok := stages[0].(MatchID)
	if !ok {
		t.Fatalf("Expected MatchID first, got %T", stages[0])
	}
	if matchID.ID == nil || *matchID.ID != 1396 {
		t.Errorf("Expected id 1396, got %v", matchID.ID)
	}

	page, ok := stages[2].(Page)
	if !ok {
		t.Fatalf("Expected Page last, got %T", stages[2])
	}
	if page.Page != 1 || page.Limit != 1 {
		t.Errorf("Expected page 1 limit 1, got %+v", page)
	}
}

func TestBuildDirectIDItemType(t *testing.T) {
	setupTestCfg()

	values := url.Values{}
	values.Set("id", "603")

	params, err := ParseParams(values)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// A bare id parameter matches both namespaces.
	matchID := Build(params)[0].(MatchID)
	if matchID.ItemType != "" {
		t.Errorf("Expected no item type constraint, got %q", matchID.ItemType)
	}

	params.DirectItemType = catalog.ItemTypeTVShow
	matchID = Build(params)[0].(MatchID)
	if matchID.ItemType != catalog.ItemTypeTVShow {
		t.Errorf("Expected tvshow constraint, got %q", matchID.ItemType)
	}
}

func TestBuildSourceLookup(t *testing.T) {
	setupTestCfg()

	values := url.Values{}
	values.Set("tmdbid", "1396")

	params, err := ParseParams(values)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	stages := Build(params)
	matchID, ok := stages[0].(MatchID)
	if !ok {
		t.Fatalf("Expected MatchID first, got %T", stages[0])
	}
	if matchID.Source != catalog.SourceTMDB || matchID.VID != "1396" {
		t.Errorf("Unexpected lookup: %+v", matchID)
	}
}

func TestBuildMinRatingOnlyWhenSupplied(t *testing.T) {
	setupTestCfg()

	params := &Params{
		ItemTypes:     []catalog.ItemType{catalog.ItemTypeMovie},
		ActiveStates:  []bool{true},
		Limit:         20,
		Page:          1,
		MinimumRating: math.Inf(-1),
	}

	for _, stage := range Build(params) {
		if _, ok := stage.(MinRating); ok {
			t.Error("MinRating stage present without a threshold")
		}
	}

	params.MinimumRating = 4
	found := false
	for _, stage := range Build(params) {
		if s, ok := stage.(MinRating); ok {
			found = true
			if s.Threshold != 4 {
				t.Errorf("Expected threshold 4, got %f", s.Threshold)
			}
		}
	}
	if !found {
		t.Error("Expected MinRating stage with a threshold")
	}
}

func TestBuildRatingPresenceOmittedWhenNoFields(t *testing.T) {
	setupTestCfg()

	params := &Params{
		ItemTypes:     []catalog.ItemType{catalog.ItemTypeMovie},
		ActiveStates:  []bool{true},
		Limit:         20,
		Page:          1,
		MinimumRating: math.Inf(-1),
	}

	for _, stage := range Build(params) {
		if _, ok := stage.(RatingPresence); ok {
			t.Error("RatingPresence stage present without consulted fields")
		}
	}
}
