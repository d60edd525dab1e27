package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pierrevano/whatson-api/app/catalog"
)

// TMDBAdapter is the primary metadata source: besides the rating record it
// reports the title, poster, season count and status through the Extra
// side-channel, which the reconciliation engine lifts onto the title itself.
type TMDBAdapter struct {
	config     *Config
	httpClient *http.Client
	userAgent  string
}

func NewTMDBAdapter(config *Config, httpClient *http.Client, userAgent string) *TMDBAdapter {
	return &TMDBAdapter{
		config:     config,
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

func (a *TMDBAdapter) Source() string {
	return catalog.SourceTMDB
}

type tmdbDetailsResponse struct {
	ID              int     `json:"id"`
	Title           string  `json:"title"`
	Name            string  `json:"name"`
	PosterPath      string  `json:"poster_path"`
	NumberOfSeasons int     `json:"number_of_seasons"`
	Status          string  `json:"status"`
	VoteAverage     float64 `json:"vote_average"`
	VoteCount       int64   `json:"vote_count"`
}

// tmdbStatusMap maps TMDB TV statuses to the canonical status values.
var tmdbStatusMap = map[string]string{
	"Returning Series": "Ongoing",
	"Ended":            "Ended",
	"Canceled":         "Canceled",
	"In Production":    "Soon",
	"Planned":          "Soon",
	"Pilot":            "Pilot",
}

func (a *TMDBAdapter) Fetch(ctx context.Context, req FetchRequest) FetchResult {
	kind := "movie"
	if req.Ref.ItemType == catalog.ItemTypeTVShow {
		kind = "tv"
	}

	url := fmt.Sprintf(a.config.URL, kind, req.Ref.ID)
	if key := a.config.APIKey(); key != "" {
		url += "?api_key=" + key
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(a.config.Settings.Timeout)*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return Failed(a.Source(), url, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("User-Agent", a.userAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return Failed(a.Source(), url, fmt.Errorf("failed to fetch details: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Absent(a.Source(), url)
	}
	if resp.StatusCode != http.StatusOK {
		return Failed(a.Source(), url, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status))
	}

	var details tmdbDetailsResponse
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return Failed(a.Source(), url, fmt.Errorf("failed to decode response: %w", err))
	}

	record := &catalog.SourceRating{
		ID:  strconv.Itoa(details.ID),
		URL: fmt.Sprintf("https://www.themoviedb.org/%s/%d", kind, details.ID),
		Extra: map[string]any{
			"title":     firstNonEmpty(details.Title, details.Name),
			"image_url": posterURL(details.PosterPath),
		},
	}

	if details.VoteCount > 0 {
		rating := details.VoteAverage
		count := details.VoteCount
		record.UsersRating = &rating
		record.UsersRatingCount = &count
	}

	if req.Ref.ItemType == catalog.ItemTypeTVShow {
		record.Extra["seasons_number"] = details.NumberOfSeasons
		status, ok := tmdbStatusMap[details.Status]
		if !ok {
			status = "Unknown"
		}
		record.Extra["status"] = status
	}

	return OK(a.Source(), url, record)
}

func posterURL(path string) string {
	if path == "" {
		return ""
	}
	return "https://image.tmdb.org/t/p/w500" + path
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
