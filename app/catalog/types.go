package catalog

import (
	"time"
)

type ItemType string

const (
	ItemTypeMovie  ItemType = "movie"
	ItemTypeTVShow ItemType = "tvshow"
)

// SourceRating is the normalized record every source adapter produces.
// Source-specific fields that don't fit the shared shape go into Extra.
type SourceRating struct {
	ID                 string         `bson:"id" json:"id"`
	URL                string         `bson:"url" json:"url"`
	UsersRating        *float64       `bson:"users_rating" json:"users_rating"`
	UsersRatingCount   *int64         `bson:"users_rating_count,omitempty" json:"users_rating_count,omitempty"`
	CriticsRating      *float64       `bson:"critics_rating,omitempty" json:"critics_rating,omitempty"`
	CriticsRatingCount *int64         `bson:"critics_rating_count,omitempty" json:"critics_rating_count,omitempty"`
	Popularity         *int           `bson:"popularity,omitempty" json:"popularity,omitempty"`
	Extra              map[string]any `bson:"extra,omitempty" json:"extra,omitempty"`
}

// HasRating reports whether the record carries at least one real rating.
// A record with only metadata is treated as absent.
func (r *SourceRating) HasRating() bool {
	if r == nil {
		return false
	}
	return r.UsersRating != nil || r.CriticsRating != nil
}

// Ratings holds one optional record per tracked source.
type Ratings struct {
	Allocine       *SourceRating `bson:"allocine,omitempty" json:"allocine,omitempty"`
	Betaseries     *SourceRating `bson:"betaseries,omitempty" json:"betaseries,omitempty"`
	IMDB           *SourceRating `bson:"imdb,omitempty" json:"imdb,omitempty"`
	Metacritic     *SourceRating `bson:"metacritic,omitempty" json:"metacritic,omitempty"`
	RottenTomatoes *SourceRating `bson:"rotten_tomatoes,omitempty" json:"rotten_tomatoes,omitempty"`
	Letterboxd     *SourceRating `bson:"letterboxd,omitempty" json:"letterboxd,omitempty"`
	SensCritique   *SourceRating `bson:"senscritique,omitempty" json:"senscritique,omitempty"`
	TMDB           *SourceRating `bson:"tmdb,omitempty" json:"tmdb,omitempty"`
	Trakt          *SourceRating `bson:"trakt,omitempty" json:"trakt,omitempty"`
	TVTime         *SourceRating `bson:"tv_time,omitempty" json:"tv_time,omitempty"`
}

func (r *Ratings) Get(source string) *SourceRating {
	switch source {
	case SourceAllocine:
		return r.Allocine
	case SourceBetaseries:
		return r.Betaseries
	case SourceIMDB:
		return r.IMDB
	case SourceMetacritic:
		return r.Metacritic
	case SourceRottenTomatoes:
		return r.RottenTomatoes
	case SourceLetterboxd:
		return r.Letterboxd
	case SourceSensCritique:
		return r.SensCritique
	case SourceTMDB:
		return r.TMDB
	case SourceTrakt:
		return r.Trakt
	case SourceTVTime:
		return r.TVTime
	default:
		return nil
	}
}

func (r *Ratings) Set(source string, rec *SourceRating) {
	switch source {
	case SourceAllocine:
		r.Allocine = rec
	case SourceBetaseries:
		r.Betaseries = rec
	case SourceIMDB:
		r.IMDB = rec
	case SourceMetacritic:
		r.Metacritic = rec
	case SourceRottenTomatoes:
		r.RottenTomatoes = rec
	case SourceLetterboxd:
		r.Letterboxd = rec
	case SourceSensCritique:
		r.SensCritique = rec
	case SourceTMDB:
		r.TMDB = rec
	case SourceTrakt:
		r.Trakt = rec
	case SourceTVTime:
		r.TVTime = rec
	}
}

// IsEmpty reports whether no source carries a rating.
func (r *Ratings) IsEmpty() bool {
	for _, source := range Sources() {
		if r.Get(source).HasRating() {
			return false
		}
	}
	return true
}

// Platform is a streaming platform the title is linked to.
type Platform struct {
	Name    string `bson:"name" json:"name"`
	LinkURL string `bson:"link_url" json:"link_url"`
}

// Title is one movie or one TV show, keyed by (ID, ItemType).
type Title struct {
	ID            int        `bson:"id" json:"id"`
	ItemType      ItemType   `bson:"item_type" json:"item_type"`
	Title         string     `bson:"title" json:"title"`
	ImageURL      string     `bson:"image_url" json:"image_url"`
	IsActive      bool       `bson:"is_active" json:"is_active"`
	SeasonsNumber *int       `bson:"seasons_number,omitempty" json:"seasons_number,omitempty"`
	Status        string     `bson:"status,omitempty" json:"status,omitempty"`
	Platforms     []Platform `bson:"platforms,omitempty" json:"platforms,omitempty"`
	Ratings       Ratings    `bson:"ratings" json:"ratings"`

	// Computed at query time via the normalization stage, never written
	// back as source of truth.
	RatingsAverage    *float64 `bson:"ratings_average,omitempty" json:"ratings_average"`
	PopularityAverage *float64 `bson:"popularity_average,omitempty" json:"popularity_average"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Normalize drops metadata-only source records so the stored document
// honors the "non-nil record has at least one rating" invariant.
func (t *Title) Normalize() {
	for _, source := range Sources() {
		if rec := t.Ratings.Get(source); rec != nil && !rec.HasRating() {
			t.Ratings.Set(source, nil)
		}
	}
}

// HasMinimalPayload reports whether the title is complete enough to be
// created: a title, an image, and at least one rating source.
func (t *Title) HasMinimalPayload() bool {
	return t.Title != "" && t.ImageURL != "" && !t.Ratings.IsEmpty()
}

// Clone returns a deep copy safe to mutate during reconciliation.
func (t *Title) Clone() *Title {
	clone := *t

	clone.Platforms = append([]Platform(nil), t.Platforms...)
	if t.SeasonsNumber != nil {
		v := *t.SeasonsNumber
		clone.SeasonsNumber = &v
	}
	clone.RatingsAverage = clonePtr(t.RatingsAverage)
	clone.PopularityAverage = clonePtr(t.PopularityAverage)

	for _, source := range Sources() {
		clone.Ratings.Set(source, t.Ratings.Get(source).clone())
	}

	return &clone
}

func (r *SourceRating) clone() *SourceRating {
	if r == nil {
		return nil
	}

	rec := *r
	rec.UsersRating = clonePtr(r.UsersRating)
	rec.UsersRatingCount = clonePtr(r.UsersRatingCount)
	rec.CriticsRating = clonePtr(r.CriticsRating)
	rec.CriticsRatingCount = clonePtr(r.CriticsRatingCount)
	rec.Popularity = clonePtr(r.Popularity)

	if r.Extra != nil {
		rec.Extra = make(map[string]any, len(r.Extra))
		for k, v := range r.Extra {
			rec.Extra[k] = v
		}
	}

	return &rec
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// TitleRef identifies one title for ingestion.
type TitleRef struct {
	ID       int
	ItemType ItemType
}
