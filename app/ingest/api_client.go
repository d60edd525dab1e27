package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pierrevano/whatson-api/app/catalog"
)

// TitleViewer reads the system's own query API, giving reconciliation the
// currently served view of a title.
type TitleViewer interface {
	GetTitle(ctx context.Context, ref catalog.TitleRef) (*catalog.Title, error)
}

var _ TitleViewer = (*APIClient)(nil)

type APIClient struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

func NewAPIClient(baseURL string, httpClient *http.Client, userAgent string) *APIClient {
	return &APIClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

// GetTitle returns nil without error when the title is not served yet. A
// 5xx is fatal for the whole run: it means the serving layer itself is
// broken, not a flaky third-party site.
func (c *APIClient) GetTitle(ctx context.Context, ref catalog.TitleRef) (*catalog.Title, error) {
	url := fmt.Sprintf("%s/%s/%d", c.baseURL, ref.ItemType, ref.ID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query API: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode >= 500:
		return nil, Fatalf("query API returned %d for %s", resp.StatusCode, url)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("query API returned %d for %s", resp.StatusCode, url)
	}

	var title catalog.Title
	if err := json.NewDecoder(resp.Body).Decode(&title); err != nil {
		return nil, fmt.Errorf("failed to decode API response: %w", err)
	}

	return &title, nil
}
