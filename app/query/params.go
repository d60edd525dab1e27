package query

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pierrevano/whatson-api/app/catalog"
	"github.com/pierrevano/whatson-api/app/cfg"
)

// ValidationError is a 400-class failure raised before any stage is built.
type ValidationError struct {
	Message string
	Code    int
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{
		Message: fmt.Sprintf(format, args...),
		Code:    http.StatusBadRequest,
	}
}

// SourceIDLookup is an exact external-id lookup that bypasses filtering.
type SourceIDLookup struct {
	Source string
	ID     string
}

// Params is one validated filter set, transient per request.
type Params struct {
	ItemTypes     []catalog.ItemType
	ActiveStates  []bool
	Limit         int
	Page          int
	Platforms     []string // nil means no platform restriction
	Seasons       []int
	Statuses      []string
	MinimumRating float64 // -Inf when no threshold was supplied
	RatingsFields []ScaledField
	PopFields     []ScaledField
	TitleSearch   string
	DirectID      *int
	// DirectItemType pins a direct lookup to one namespace; the type-specific
	// routes set it, the bare id parameter leaves it empty (both types).
	DirectItemType catalog.ItemType
	SourceLookup   *SourceIDLookup
}

var sourceIDParams = map[string]string{
	"allocineid":       catalog.SourceAllocine,
	"betaseriesid":     catalog.SourceBetaseries,
	"imdbid":           catalog.SourceIMDB,
	"metacriticid":     catalog.SourceMetacritic,
	"rottentomatoesid": catalog.SourceRottenTomatoes,
	"letterboxdid":     catalog.SourceLetterboxd,
	"senscritiqueid":   catalog.SourceSensCritique,
	"tmdbid":           catalog.SourceTMDB,
	"traktid":          catalog.SourceTrakt,
	"tvtimeid":         catalog.SourceTVTime,
}

var allowedParams = map[string]bool{
	"item_type":          true,
	"is_active":          true,
	"limit":              true,
	"page":               true,
	"platforms":          true,
	"seasons_number":     true,
	"status":             true,
	"minimum_ratings":    true,
	"popularity_filters": true,
	"ratings_filters":    true,
	"title":              true,
	"id":                 true,
}

var statusCaser = cases.Title(language.English)

// ParseParams validates raw query values and applies defaults. All unknown
// parameter names are rejected together in one error.
func ParseParams(values url.Values) (*Params, error) {
	if err := checkUnknownParams(values); err != nil {
		return nil, err
	}

	config := cfg.Get()

	params := &Params{
		Limit:         config.DefaultLimit,
		Page:          1,
		MinimumRating: math.Inf(-1),
	}

	if err := parseItemTypes(params, values.Get("item_type")); err != nil {
		return nil, err
	}
	if err := parseActiveStates(params, values.Get("is_active")); err != nil {
		return nil, err
	}
	if err := parsePagination(params, values, config.DefaultLimit, config.MaxLimit); err != nil {
		return nil, err
	}

	params.Platforms = parsePlatforms(values.Get("platforms"))
	params.Seasons = parseSeasons(values.Get("seasons_number"))
	params.Statuses = parseStatuses(values.Get("status"))
	params.MinimumRating = parseMinimumRatings(values.Get("minimum_ratings"))
	params.TitleSearch = strings.TrimSpace(values.Get("title"))

	ratingsTokens := values.Get("ratings_filters")
	if ratingsTokens == "" {
		ratingsTokens = "all"
	}
	params.RatingsFields = RatingsFields(ratingsTokens)

	popTokens := values.Get("popularity_filters")
	if popTokens == "" {
		popTokens = "all"
	}
	params.PopFields = PopularityFields(popTokens)

	if rawID := values.Get("id"); rawID != "" {
		id, err := strconv.Atoi(rawID)
		if err != nil || id <= 0 {
			return nil, newValidationError("Invalid id: %s", rawID)
		}
		params.DirectID = &id
	}

	for param, source := range sourceIDParams {
		if value := getParamFold(values, param); value != "" {
			params.SourceLookup = &SourceIDLookup{Source: source, ID: value}
			break
		}
	}

	return params, nil
}

func checkUnknownParams(values url.Values) error {
	var unknown []string
	for key := range values {
		lower := strings.ToLower(key)
		if !allowedParams[lower] && sourceIDParams[lower] == "" {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return newValidationError("Unknown query parameters: %s", strings.Join(unknown, ", "))
}

func parseItemTypes(params *Params, raw string) error {
	if raw == "" {
		params.ItemTypes = []catalog.ItemType{catalog.ItemTypeMovie}
		return nil
	}

	seen := make(map[catalog.ItemType]bool)
	for _, part := range strings.Split(raw, ",") {
		switch strings.TrimSpace(part) {
		case string(catalog.ItemTypeMovie):
			if !seen[catalog.ItemTypeMovie] {
				params.ItemTypes = append(params.ItemTypes, catalog.ItemTypeMovie)
				seen[catalog.ItemTypeMovie] = true
			}
		case string(catalog.ItemTypeTVShow):
			if !seen[catalog.ItemTypeTVShow] {
				params.ItemTypes = append(params.ItemTypes, catalog.ItemTypeTVShow)
				seen[catalog.ItemTypeTVShow] = true
			}
		default:
			return newValidationError("Invalid item_type: %s (must be movie, tvshow, or movie,tvshow)", raw)
		}
	}
	return nil
}

func parseActiveStates(params *Params, raw string) error {
	if raw == "" {
		params.ActiveStates = []bool{true}
		return nil
	}

	seen := make(map[bool]bool)
	for _, part := range strings.Split(raw, ",") {
		state, err := strconv.ParseBool(strings.TrimSpace(part))
		if err != nil {
			return newValidationError("Invalid is_active: %s", raw)
		}
		if !seen[state] {
			params.ActiveStates = append(params.ActiveStates, state)
			seen[state] = true
		}
	}
	return nil
}

func parsePagination(params *Params, values url.Values, defaultLimit, maxLimit int) error {
	if rawLimit := values.Get("limit"); rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil || limit <= 0 {
			return newValidationError("Invalid limit: %s (must be a positive integer)", rawLimit)
		}
		if limit > maxLimit {
			return newValidationError("Invalid limit: %d (maximum is %d)", limit, maxLimit)
		}
		params.Limit = limit
	}

	if rawPage := values.Get("page"); rawPage != "" {
		page, err := strconv.Atoi(rawPage)
		if err != nil || page <= 0 {
			return newValidationError("Invalid page: %s (must be a positive integer)", rawPage)
		}
		params.Page = page
	}

	return nil
}

// parsePlatforms decodes the platform list; the literal token "all" disables
// the platform filter entirely.
func parsePlatforms(raw string) []string {
	if raw == "" {
		return nil
	}

	var platforms []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.EqualFold(part, "all") {
			return nil
		}
		platforms = append(platforms, part)
	}
	return platforms
}

func parseSeasons(raw string) []int {
	if raw == "" {
		return nil
	}

	var seasons []int
	for _, part := range strings.Split(raw, ",") {
		value, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || value <= 0 {
			continue
		}
		seasons = append(seasons, value)
	}
	return seasons
}

// parseStatuses case-normalizes tokens to their canonical capitalized form
// (ongoing -> Ongoing) and drops unknown values.
func parseStatuses(raw string) []string {
	if raw == "" {
		return nil
	}

	valid := make(map[string]bool, len(catalog.Statuses))
	for _, status := range catalog.Statuses {
		valid[status] = true
	}

	var statuses []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		status := statusCaser.String(strings.ToLower(strings.TrimSpace(part)))
		if !valid[status] || seen[status] {
			continue
		}
		statuses = append(statuses, status)
		seen[status] = true
	}
	return statuses
}

// parseMinimumRatings keeps the numerically smallest supplied threshold so
// the input order never matters; non-numeric input means no threshold.
func parseMinimumRatings(raw string) float64 {
	minimum := math.Inf(-1)
	hasValue := false

	for _, part := range strings.Split(raw, ",") {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			continue
		}
		if !hasValue || value < minimum {
			minimum = value
			hasValue = true
		}
	}

	if !hasValue {
		return math.Inf(-1)
	}
	return minimum
}

func getParamFold(values url.Values, name string) string {
	for key := range values {
		if strings.EqualFold(key, name) {
			return values.Get(key)
		}
	}
	return ""
}
