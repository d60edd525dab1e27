package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pierrevano/whatson-api/app/catalog"
)

func testConfig(url string) *Config {
	return &Config{
		Name: "test",
		URL:  url,
		Settings: ConfigSettings{
			Enabled:    true,
			Timeout:    5,
			RetryClass: RetryClassDefault,
		},
	}
}

func TestTMDBAdapterFetchTVShow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tv/1396" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": 1396,
			"name": "Breaking Bad",
			"poster_path": "/poster.jpg",
			"number_of_seasons": 5,
			"status": "Ended",
			"vote_average": 8.9,
			"vote_count": 12000
		}`))
	}))
	defer server.Close()

	adapter := NewTMDBAdapter(testConfig(server.URL+"/%s/%d"), server.Client(), "test-agent")
	result := adapter.Fetch(context.Background(), FetchRequest{
		Ref: catalog.TitleRef{ID: 1396, ItemType: catalog.ItemTypeTVShow},
	})

	if result.Status != StatusOK {
		t.Fatalf("Expected ok, got %s (%v)", result.Status, result.Err)
	}

	record := result.Record
	if record.ID != "1396" {
		t.Errorf("Expected id 1396, got %s", record.ID)
	}
	if record.UsersRating == nil || *record.UsersRating != 8.9 {
		t.Errorf("Unexpected rating: %v", record.UsersRating)
	}
	if record.Extra["title"] != "Breaking Bad" {
		t.Errorf("Unexpected title: %v", record.Extra["title"])
	}
	if record.Extra["image_url"] != "https://image.tmdb.org/t/p/w500/poster.jpg" {
		t.Errorf("Unexpected image url: %v", record.Extra["image_url"])
	}
	if record.Extra["seasons_number"] != 5 {
		t.Errorf("Unexpected seasons: %v", record.Extra["seasons_number"])
	}
	if record.Extra["status"] != "Ended" {
		t.Errorf("Unexpected status: %v", record.Extra["status"])
	}
}

func TestTMDBAdapterMapsReturningSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 1399, "name": "Show", "status": "Returning Series", "vote_count": 10, "vote_average": 8}`))
	}))
	defer server.Close()

	adapter := NewTMDBAdapter(testConfig(server.URL+"/%s/%d"), server.Client(), "test-agent")
	result := adapter.Fetch(context.Background(), FetchRequest{
		Ref: catalog.TitleRef{ID: 1399, ItemType: catalog.ItemTypeTVShow},
	})

	if result.Record.Extra["status"] != "Ongoing" {
		t.Errorf("Expected Ongoing, got %v", result.Record.Extra["status"])
	}
}

func TestTMDBAdapter404IsAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := NewTMDBAdapter(testConfig(server.URL+"/%s/%d"), server.Client(), "test-agent")
	result := adapter.Fetch(context.Background(), FetchRequest{
		Ref: catalog.TitleRef{ID: 999999, ItemType: catalog.ItemTypeMovie},
	})

	if result.Status != StatusAbsent {
		t.Errorf("Expected absent for 404, got %s", result.Status)
	}
}

func TestTMDBAdapter500IsFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := NewTMDBAdapter(testConfig(server.URL+"/%s/%d"), server.Client(), "test-agent")
	result := adapter.Fetch(context.Background(), FetchRequest{
		Ref: catalog.TitleRef{ID: 1396, ItemType: catalog.ItemTypeMovie},
	})

	if result.Status != StatusFailed {
		t.Errorf("Expected failed for 500, got %s", result.Status)
	}
	if result.Err == nil {
		t.Error("Expected an error for 500")
	}
}

func TestTMDBAdapterZeroVotesHasNoRating(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 42, "title": "Obscure", "vote_average": 0, "vote_count": 0}`))
	}))
	defer server.Close()

	adapter := NewTMDBAdapter(testConfig(server.URL+"/%s/%d"), server.Client(), "test-agent")
	result := adapter.Fetch(context.Background(), FetchRequest{
		Ref: catalog.TitleRef{ID: 42, ItemType: catalog.ItemTypeMovie},
	})

	if result.Status != StatusOK {
		t.Fatalf("Expected ok, got %s", result.Status)
	}
	if result.Record.UsersRating != nil {
		t.Error("Zero votes must not produce a rating")
	}
}
