package ingest

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pierrevano/whatson-api/app/catalog"
	"github.com/pierrevano/whatson-api/app/sources"
)

// absentIDSentinel marks a request URL built from a missing source-native
// id. Such requests fail deterministically, so retrying them only burns the
// source's rate budget.
const absentIDSentinel = "undefined"

// Fetcher fans out across all enabled source adapters for one title and
// applies the bounded retry policy per fetch.
type Fetcher struct {
	registry    *sources.Registry
	configCache *sources.ConfigCache

	retryCount           int
	aggressiveRetryCount int
	retryDelay           time.Duration
	sleep                func(ctx context.Context, d time.Duration) error
}

func NewFetcher(registry *sources.Registry, configCache *sources.ConfigCache,
	retryCount, aggressiveRetryCount int, retryDelay time.Duration) *Fetcher {
	return &Fetcher{
		registry:             registry,
		configCache:          configCache,
		retryCount:           retryCount,
		aggressiveRetryCount: aggressiveRetryCount,
		retryDelay:           retryDelay,
		sleep:                sleepContext,
	}
}

// FetchAll invokes every enabled adapter concurrently and awaits them all.
// prior supplies the source-native ids already known for this title.
func (f *Fetcher) FetchAll(ctx context.Context, ref catalog.TitleRef, prior *catalog.Title) map[string]sources.FetchResult {
	configs := f.configCache.GetEnabledConfigs()

	results := make(map[string]sources.FetchResult, len(configs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, config := range configs {
		adapter, ok := f.registry.Get(name)
		if !ok {
			slog.Debug("No adapter registered for source, skipping", "source", name)
			continue
		}

		req := sources.FetchRequest{Ref: ref}
		if prior != nil {
			if rec := prior.Ratings.Get(name); rec != nil {
				req.SourceID = rec.ID
			}
		}

		wg.Add(1)
		go func(adapter sources.Adapter, config *sources.Config, req sources.FetchRequest) {
			defer wg.Done()

			result := f.fetchWithRetry(ctx, adapter, config, req)

			mu.Lock()
			results[result.Source] = result
			mu.Unlock()
		}(adapter, config, req)
	}

	wg.Wait()
	return results
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, adapter sources.Adapter,
	config *sources.Config, req sources.FetchRequest) sources.FetchResult {

	attempts := f.retryCount
	if config.Settings.RetryClass == sources.RetryClassAggressive {
		attempts = f.aggressiveRetryCount
	}
	if attempts < 1 {
		attempts = 1
	}

	var result sources.FetchResult
	for attempt := 1; attempt <= attempts; attempt++ {
		result = adapter.Fetch(ctx, req)
		if result.Status != sources.StatusFailed {
			return result
		}

		// A URL embedding the known-absent sentinel fails deterministically.
		if strings.Contains(result.URL, absentIDSentinel) {
			slog.Debug("Not retrying known-absent URL", "source", result.Source, "url", result.URL)
			return result
		}

		if attempt < attempts {
			slog.Debug("Fetch attempt failed, retrying",
				"source", result.Source, "attempt", attempt, "error", result.Err)
			if err := f.sleep(ctx, f.retryDelay); err != nil {
				return result
			}
		}
	}

	slog.Warn("Fetch failed after all attempts",
		"source", result.Source, "attempts", attempts, "error", result.Err)
	return result
}
