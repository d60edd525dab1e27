package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pierrevano/whatson-api/app/catalog"
)

// TraktAdapter fetches user ratings from the Trakt API. Trakt displays
// percentages, so the record carries the 0-100 value and the normalizer
// divides by 20.
type TraktAdapter struct {
	config     *Config
	httpClient *http.Client
	userAgent  string
}

func NewTraktAdapter(config *Config, httpClient *http.Client, userAgent string) *TraktAdapter {
	return &TraktAdapter{
		config:     config,
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

func (a *TraktAdapter) Source() string {
	return catalog.SourceTrakt
}

type traktRatingsResponse struct {
	Rating float64 `json:"rating"`
	Votes  int64   `json:"votes"`
}

func (a *TraktAdapter) Fetch(ctx context.Context, req FetchRequest) FetchResult {
	kind := "movies"
	if req.Ref.ItemType == catalog.ItemTypeTVShow {
		kind = "shows"
	}

	// Trakt is addressed by its own slug, carried over from the persisted
	// record. A missing slug produces the known-absent sentinel URL, which
	// the fetcher excludes from retries.
	slug := req.SourceID
	if slug == "" {
		slug = "undefined"
	}

	url := fmt.Sprintf(a.config.URL, kind, slug)

	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(a.config.Settings.Timeout)*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return Failed(a.Source(), url, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("User-Agent", a.userAgent)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("trakt-api-version", "2")
	if key := a.config.APIKey(); key != "" {
		httpReq.Header.Set("trakt-api-key", key)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return Failed(a.Source(), url, fmt.Errorf("failed to fetch ratings: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Absent(a.Source(), url)
	}
	if resp.StatusCode != http.StatusOK {
		return Failed(a.Source(), url, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status))
	}

	var ratings traktRatingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&ratings); err != nil {
		return Failed(a.Source(), url, fmt.Errorf("failed to decode response: %w", err))
	}

	if ratings.Votes == 0 {
		return Absent(a.Source(), url)
	}

	percentage := ratings.Rating * 10
	votes := ratings.Votes

	record := &catalog.SourceRating{
		ID:               slug,
		URL:              fmt.Sprintf("https://trakt.tv/%s/%s", kind, slug),
		UsersRating:      &percentage,
		UsersRatingCount: &votes,
	}

	return OK(a.Source(), url, record)
}
