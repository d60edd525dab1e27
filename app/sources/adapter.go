package sources

import (
	"context"

	"github.com/pierrevano/whatson-api/app/catalog"
)

type FetchStatus string

const (
	// StatusOK means the source answered with a usable rating record.
	StatusOK FetchStatus = "ok"
	// StatusAbsent means the source definitively reported the title (or its
	// rating) as gone. This is the only status allowed to clear a persisted
	// rating.
	StatusAbsent FetchStatus = "absent"
	// StatusFailed covers timeouts, 5xx responses and malformed payloads.
	// Transient by definition; never authoritative.
	StatusFailed FetchStatus = "failed"
)

type FetchRequest struct {
	Ref catalog.TitleRef
	// SourceID is the source-native identifier from the persisted record,
	// empty when the title has never been seen by this source.
	SourceID string
}

type FetchResult struct {
	Source string
	Status FetchStatus
	Record *catalog.SourceRating
	URL    string
	Err    error
}

func OK(source, url string, record *catalog.SourceRating) FetchResult {
	return FetchResult{Source: source, Status: StatusOK, Record: record, URL: url}
}

func Absent(source, url string) FetchResult {
	return FetchResult{Source: source, Status: StatusAbsent, URL: url}
}

func Failed(source, url string, err error) FetchResult {
	return FetchResult{Source: source, Status: StatusFailed, URL: url, Err: err}
}

// Adapter is the per-source boundary. Implementations return a normalized
// record and an explicit status instead of a bare nil, so the reconciliation
// engine can tell a transient failure from a definitive removal.
type Adapter interface {
	Source() string
	Fetch(ctx context.Context, req FetchRequest) FetchResult
}
