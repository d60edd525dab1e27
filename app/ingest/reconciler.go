package ingest

import (
	"context"
	"reflect"
	"time"

	"github.com/pierrevano/whatson-api/app/catalog"
	"github.com/pierrevano/whatson-api/app/sources"
)

// Result is the reconciliation outcome for one title. IsEqual true means the
// freshly built record matches the served view and no write is needed.
type Result struct {
	IsEqual bool
	Data    *catalog.Title
}

// Reconciler decides create / update / skip for one title from the
// per-source fetch results and the query API's current view.
type Reconciler struct {
	api TitleViewer
}

func NewReconciler(api TitleViewer) *Reconciler {
	return &Reconciler{api: api}
}

func (r *Reconciler) Run(ctx context.Context, ref catalog.TitleRef, fetched map[string]sources.FetchResult) (Result, error) {
	if allFailed(fetched) {
		return Result{}, Skipf("all source fetches failed for %s %d", ref.ItemType, ref.ID)
	}

	// Fatal errors (own-API 5xx) pass through and abort the whole run.
	current, err := r.api.GetTitle(ctx, ref)
	if err != nil {
		return Result{}, err
	}

	var next *catalog.Title
	if current != nil {
		next = current.Clone()
	} else {
		next = &catalog.Title{
			ID:       ref.ID,
			ItemType: ref.ItemType,
			IsActive: true,
		}
	}

	for source, result := range fetched {
		switch result.Status {
		case sources.StatusOK:
			next.Ratings.Set(source, result.Record)
		case sources.StatusAbsent:
			// The only signal allowed to clear a persisted rating.
			next.Ratings.Set(source, nil)
		case sources.StatusFailed:
			// Transient: keep whatever is persisted, never regress to null.
		}
	}

	liftMetadata(next)
	next.Normalize()

	// TMDB is the primary identifier source and co-occurs with IMDb on every
	// tracked title; an IMDb rating without a TMDB record means a broken
	// fetch, not a real state.
	if next.Ratings.IMDB.HasRating() && next.Ratings.TMDB == nil {
		return Result{}, Skipf("suspicious data for %s %d: imdb rating present without tmdb record", ref.ItemType, ref.ID)
	}

	if current == nil && !next.HasMinimalPayload() {
		return Result{}, Skipf("incomplete payload for new %s %d", ref.ItemType, ref.ID)
	}

	// Derived fields are query-time only and never written back.
	next.RatingsAverage = nil
	next.PopularityAverage = nil

	if current != nil && titlesEqual(current, next) {
		return Result{IsEqual: true, Data: current}, nil
	}

	return Result{IsEqual: false, Data: next}, nil
}

func allFailed(fetched map[string]sources.FetchResult) bool {
	for _, result := range fetched {
		if result.Status != sources.StatusFailed {
			return false
		}
	}
	return true
}

// liftMetadata moves title-level fields reported through the TMDB record's
// side channel onto the title itself.
func liftMetadata(title *catalog.Title) {
	rec := title.Ratings.TMDB
	if rec == nil || rec.Extra == nil {
		return
	}

	if v, ok := rec.Extra["title"].(string); ok && v != "" {
		title.Title = v
	}
	delete(rec.Extra, "title")

	if v, ok := rec.Extra["image_url"].(string); ok && v != "" {
		title.ImageURL = v
	}
	delete(rec.Extra, "image_url")

	if seasons, ok := asInt(rec.Extra["seasons_number"]); ok && seasons > 0 {
		title.SeasonsNumber = &seasons
	}
	delete(rec.Extra, "seasons_number")

	if v, ok := rec.Extra["status"].(string); ok && v != "" {
		title.Status = v
	}
	delete(rec.Extra, "status")

	if len(rec.Extra) == 0 {
		rec.Extra = nil
	}
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// titlesEqual compares two titles ignoring timestamps and derived fields, so
// no-op reconciliations never trigger a write.
func titlesEqual(a, b *catalog.Title) bool {
	return reflect.DeepEqual(stripVolatile(a), stripVolatile(b))
}

func stripVolatile(t *catalog.Title) *catalog.Title {
	c := t.Clone()
	c.RatingsAverage = nil
	c.PopularityAverage = nil
	c.CreatedAt = time.Time{}
	c.UpdatedAt = time.Time{}
	return c
}
