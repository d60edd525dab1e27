package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pierrevano/whatson-api/app/catalog"
	"github.com/pierrevano/whatson-api/app/database"
)

// Runner drives one ingestion run: sequential across titles, concurrent
// across sources within a title, with the quality gate at the end. Each
// title's reconciliation and write is an independent unit, so one bad title
// never corrupts or aborts the rest of the batch.
type Runner struct {
	repo       database.TitleRepository
	fetcher    *Fetcher
	reconciler *Reconciler
	gate       *QualityGate
	throttle   *Throttle
	seeds      []catalog.TitleRef
	now        func() time.Time
}

func NewRunner(repo database.TitleRepository, fetcher *Fetcher, reconciler *Reconciler,
	gate *QualityGate, throttle *Throttle, seeds []catalog.TitleRef) *Runner {
	return &Runner{
		repo:       repo,
		fetcher:    fetcher,
		reconciler: reconciler,
		gate:       gate,
		throttle:   throttle,
		seeds:      seeds,
		now:        time.Now,
	}
}

func (r *Runner) Run(ctx context.Context) error {
	refs, err := r.repo.ListActiveRefs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list titles for ingestion: %w", err)
	}
	refs = mergeRefs(refs, r.seeds)

	started := r.now()
	written := 0
	unchanged := 0
	skipped := 0

	for _, ref := range refs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := r.throttle.Wait(ctx); err != nil {
			return err
		}

		if err := r.reconcileOne(ctx, ref, &written, &unchanged, &skipped); err != nil {
			return err
		}
	}

	slog.Info("Ingestion run completed",
		"titles", len(refs),
		"written", written,
		"unchanged", unchanged,
		"skipped", skipped,
		"duration", time.Since(started))

	return r.gate.Run(ctx)
}

func (r *Runner) reconcileOne(ctx context.Context, ref catalog.TitleRef, written, unchanged, skipped *int) error {
	prior, err := r.repo.GetTitle(ctx, ref.ID, ref.ItemType)
	if err != nil {
		slog.Warn("Failed to load persisted title, skipping", "item_type", ref.ItemType, "id", ref.ID, "error", err)
		*skipped++
		return nil
	}

	fetched := r.fetcher.FetchAll(ctx, ref, prior)

	result, err := r.reconciler.Run(ctx, ref, fetched)
	if err != nil {
		if IsFatal(err) {
			return err
		}
		if IsSkip(err) {
			slog.Info("Title skipped", "item_type", ref.ItemType, "id", ref.ID, "reason", err)
		} else {
			slog.Warn("Reconciliation failed, skipping title", "item_type", ref.ItemType, "id", ref.ID, "error", err)
		}
		*skipped++
		return nil
	}

	if result.IsEqual {
		*unchanged++
		return nil
	}

	title := result.Data
	now := r.now().UTC()
	if title.CreatedAt.IsZero() {
		title.CreatedAt = now
	}
	title.UpdatedAt = now

	if err := r.repo.UpsertTitle(ctx, title); err != nil {
		slog.Error("Failed to write title", "item_type", ref.ItemType, "id", ref.ID, "error", err)
		*skipped++
		return nil
	}

	slog.Debug("Title written", "item_type", ref.ItemType, "id", ref.ID)
	*written++
	return nil
}

func mergeRefs(refs, seeds []catalog.TitleRef) []catalog.TitleRef {
	seen := make(map[catalog.TitleRef]bool, len(refs))
	for _, ref := range refs {
		seen[ref] = true
	}

	for _, seed := range seeds {
		if !seen[seed] {
			refs = append(refs, seed)
			seen[seed] = true
		}
	}
	return refs
}
