package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/pierrevano/whatson-api/app/sources"
)

// StatsCounter is the slice of the repository the gate needs.
type StatsCounter interface {
	CountTitles(ctx context.Context) (int64, error)
	CountNullField(ctx context.Context, field string) (int64, error)
}

// QualityGate checks post-run collection statistics against the per-field
// null thresholds from the source configuration. The reconciliation engine
// tolerates individual null results by design; this gate is what catches
// systemic scraper breakage before bad data dominates the catalog.
type QualityGate struct {
	stats       StatsCounter
	configCache *sources.ConfigCache
}

func NewQualityGate(stats StatsCounter, configCache *sources.ConfigCache) *QualityGate {
	return &QualityGate{
		stats:       stats,
		configCache: configCache,
	}
}

func (g *QualityGate) Run(ctx context.Context) error {
	total, err := g.stats.CountTitles(ctx)
	if err != nil {
		return fmt.Errorf("failed to count titles: %w", err)
	}
	if total == 0 {
		return nil
	}

	configs := g.configCache.GetEnabledConfigs()

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		quality := configs[name].Quality

		usersField := "ratings." + name + ".users_rating"
		if err := g.checkField(ctx, usersField, quality.UsersRatingMaxNullPercent, total); err != nil {
			return err
		}

		criticsField := "ratings." + name + ".critics_rating"
		if err := g.checkField(ctx, criticsField, quality.CriticsRatingMaxNullPercent, total); err != nil {
			return err
		}
	}

	return nil
}

// checkField verifies one monitored field; a zero threshold leaves the field
// unmonitored.
func (g *QualityGate) checkField(ctx context.Context, field string, threshold float64, total int64) error {
	if threshold <= 0 {
		return nil
	}

	nullCount, err := g.stats.CountNullField(ctx, field)
	if err != nil {
		return fmt.Errorf("failed to count null values for %s: %w", field, err)
	}

	ratio := float64(nullCount) * 100 / float64(total)
	if ratio > threshold {
		return Fatalf("data quality gate: %s is null in %.1f%% of %d documents (threshold %.1f%%)",
			field, ratio, total, threshold)
	}

	slog.Debug("Quality gate field check passed", "field", field, "null_percent", ratio, "threshold", threshold)
	return nil
}
