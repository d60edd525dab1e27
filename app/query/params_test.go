package query

import (
	"math"
	"net/url"
	"strings"
	"testing"

	"github.com/pierrevano/whatson-api/app/catalog"
	"github.com/pierrevano/whatson-api/app/cfg"
)

func setupTestCfg() {
	cfg.Set(&cfg.Cfg{
		DefaultLimit:     20,
		MaxLimit:         200,
		MaxSeasonsBucket: 5,
	})
}

func TestParseParamsDefaults(t *testing.T) {
	setupTestCfg()

	params, err := ParseParams(url.Values{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(params.ItemTypes) != 1 || params.ItemTypes[0] != catalog.ItemTypeMovie {
		t.Errorf("Expected default item type movie, got %v", params.ItemTypes)
	}
	if len(params.ActiveStates) != 1 || params.ActiveStates[0] != true {
		t.Errorf("Expected default active state true, got %v", params.ActiveStates)
	}
	if params.Limit != 20 {
		t.Errorf("Expected default limit 20, got %d", params.Limit)
	}
	if params.Page != 1 {
		t.Errorf("Expected default page 1, got %d", params.Page)
	}
	if !math.IsInf(params.MinimumRating, -1) {
		t.Errorf("Expected no rating threshold, got %f", params.MinimumRating)
	}
	if len(params.RatingsFields) == 0 {
		t.Error("Expected default ratings fields to cover all sources")
	}
	if params.Platforms != nil {
		t.Errorf("Expected no platform restriction, got %v", params.Platforms)
	}
}

func TestParseParamsUnknownParamsBatch(t *testing.T) {
	setupTestCfg()

	values := url.Values{}
	values.Set("zeta", "1")
	values.Set("alpha", "2")
	values.Set("item_type", "movie")

	_, err := ParseParams(values)
	if err == nil {
		t.Fatal("Expected error for unknown parameters")
	}

	validationErr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("Expected ValidationError, got %T", err)
	}
	if validationErr.Code != 400 {
		t.Errorf("Expected code 400, got %d", validationErr.Code)
	}

	// All unknown names are reported together, sorted.
	if !strings.Contains(validationErr.Message, "alpha, zeta") {
		t.Errorf("Expected sorted batch of unknown names, got %q", validationErr.Message)
	}
}

func TestParseParamsItemTypes(t *testing.T) {
	setupTestCfg()

	values := url.Values{}
	values.Set("item_type", "movie,tvshow")

	params, err := ParseParams(values)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(params.ItemTypes) != 2 {
		t.Errorf("Expected both item types, got %v", params.ItemTypes)
	}

	values.Set("item_type", "podcast")
	if _, err := ParseParams(values); err == nil {
		t.Error("Expected error for invalid item_type")
	}
}

func TestParseParamsLimitBounds(t *testing.T) {
	setupTestCfg()

	values := url.Values{}
	values.Set("limit", "50")
	params, err := ParseParams(values)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if params.Limit != 50 {
		t.Errorf("Expected limit 50, got %d", params.Limit)
	}

	values.Set("limit", "5000")
	if _, err := ParseParams(values); err == nil {
		t.Error("Expected error for limit above maximum")
	}

	values.Set("limit", "0")
	if _, err := ParseParams(values); err == nil {
		t.Error("Expected error for non-positive limit")
	}

	values.Set("limit", "abc")
	if _, err := ParseParams(values); err == nil {
		t.Error("Expected error for non-numeric limit")
	}
}

func TestParseParamsIsActive(t *testing.T) {
	setupTestCfg()

	values := url.Values{}
	values.Set("is_active", "true,false")
	params, err := ParseParams(values)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(params.ActiveStates) != 2 {
		t.Errorf("Expected both active states, got %v", params.ActiveStates)
	}

	values.Set("is_active", "maybe")
	if _, err := ParseParams(values); err == nil {
		t.Error("Expected error for invalid is_active")
	}
}

func TestParseParamsMinimumRatingsKeepsSmallest(t *testing.T) {
	setupTestCfg()

	values := url.Values{}
	values.Set("minimum_ratings", "4,2.5,3")
	params, err := ParseParams(values)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if params.MinimumRating != 2.5 {
		t.Errorf("Expected smallest threshold 2.5, got %f", params.MinimumRating)
	}

	// Order independence: same set, different order, same result.
	values.Set("minimum_ratings", "2.5,4,3")
	params, _ = ParseParams(values)
	if params.MinimumRating != 2.5 {
		t.Errorf("Expected threshold 2.5 regardless of order, got %f", params.MinimumRating)
	}

	values.Set("minimum_ratings", "garbage")
	params, _ = ParseParams(values)
	if !math.IsInf(params.MinimumRating, -1) {
		t.Errorf("Expected no threshold for non-numeric input, got %f", params.MinimumRating)
	}
}

func TestParseParamsPlatformsAll(t *testing.T) {
	setupTestCfg()

	values := url.Values{}
	values.Set("platforms", "Netflix,Canal+")
	params, err := ParseParams(values)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(params.Platforms) != 2 {
		t.Errorf("Expected 2 platforms, got %v", params.Platforms)
	}

	// The "all" token disables the filter entirely, wherever it appears.
	values.Set("platforms", "Netflix,all")
	params, _ = ParseParams(values)
	if params.Platforms != nil {
		t.Errorf("Expected nil platforms for 'all', got %v", params.Platforms)
	}
}

func TestParseParamsStatusCanonicalization(t *testing.T) {
	setupTestCfg()

	values := url.Values{}
	values.Set("status", "ONGOING,canceled,bogus")
	params, err := ParseParams(values)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(params.Statuses) != 2 {
		t.Fatalf("Expected 2 statuses, got %v", params.Statuses)
	}
	if params.Statuses[0] != "Ongoing" || params.Statuses[1] != "Canceled" {
		t.Errorf("Expected canonical [Ongoing Canceled], got %v", params.Statuses)
	}
}

func TestParseParamsSourceIDLookup(t *testing.T) {
	setupTestCfg()

	values := url.Values{}
	values.Set("imdbid", "tt0903747")
	params, err := ParseParams(values)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if params.SourceLookup == nil {
		t.Fatal("Expected source lookup to be set")
	}
	if params.SourceLookup.Source != catalog.SourceIMDB {
		t.Errorf("Expected imdb source, got %s", params.SourceLookup.Source)
	}
	if params.SourceLookup.ID != "tt0903747" {
		t.Errorf("Expected id tt0903747, got %s", params.SourceLookup.ID)
	}
}

func TestParseParamsDirectID(t *testing.T) {
	setupTestCfg()

	values := url.Values{}
	values.Set("id", "1396")
	params, err := ParseParams(values)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if params.DirectID == nil || *params.DirectID != 1396 {
		t.Errorf("Expected direct id 1396, got %v", params.DirectID)
	}

	values.Set("id", "-3")
	if _, err := ParseParams(values); err == nil {
		t.Error("Expected error for negative id")
	}
}
