package query

import (
	"strings"

	"github.com/pierrevano/whatson-api/app/catalog"
)

// ScaledField is one normalized-value expression: the document path of a
// native rating divided by a fixed per-source divisor, landing every value
// on the common 0-5 scale.
type ScaledField struct {
	Token   string
	Path    string
	Divisor float64
}

type ratingDivisors struct {
	users   float64 // 0 means the source has no users metric
	critics float64 // 0 means the source has no critics metric
}

// Divisors are fixed per source: native scale divided by divisor yields the
// common 0-5 scale (0-5 stays as is, 0-10 divides by 2, 0-100 by 20).
var ratingScale = map[string]ratingDivisors{
	catalog.SourceAllocine:       {users: 1, critics: 1},
	catalog.SourceBetaseries:     {users: 1},
	catalog.SourceIMDB:           {users: 2},
	catalog.SourceMetacritic:     {users: 2, critics: 20},
	catalog.SourceRottenTomatoes: {users: 20, critics: 20},
	catalog.SourceLetterboxd:     {users: 1},
	catalog.SourceSensCritique:   {users: 2},
	catalog.SourceTMDB:           {users: 2},
	catalog.SourceTrakt:          {users: 20},
	catalog.SourceTVTime:         {users: 2},
}

// Popularity sources report ranks (1 = most popular), so the divisor is 1.
var popularityScale = map[string]float64{
	catalog.SourceAllocine: 1,
	catalog.SourceIMDB:     1,
}

// RatingsFields resolves a ratings_filters token list ("imdb_users,
// allocine_critics", or "all") into the ordered normalized expressions used
// for averaging. Unknown tokens are dropped, duplicates deduplicated; an
// empty result is valid and compiles to a null average downstream.
func RatingsFields(tokens string) []ScaledField {
	var fields []ScaledField
	seen := make(map[string]bool)

	for _, token := range parseTokens(tokens, allRatingTokens) {
		if seen[token] {
			continue
		}

		source, metric, ok := splitToken(token)
		if !ok {
			continue
		}
		scale, ok := ratingScale[source]
		if !ok {
			continue
		}

		switch metric {
		case "users":
			if scale.users == 0 {
				continue
			}
			fields = append(fields, ScaledField{
				Token:   token,
				Path:    "ratings." + source + ".users_rating",
				Divisor: scale.users,
			})
		case "critics":
			if scale.critics == 0 {
				continue
			}
			fields = append(fields, ScaledField{
				Token:   token,
				Path:    "ratings." + source + ".critics_rating",
				Divisor: scale.critics,
			})
		default:
			continue
		}
		seen[token] = true
	}

	return fields
}

// PopularityFields resolves a popularity_filters token list
// ("allocine_popularity,imdb_popularity", or "all") the same way.
func PopularityFields(tokens string) []ScaledField {
	var fields []ScaledField
	seen := make(map[string]bool)

	for _, token := range parseTokens(tokens, allPopularityTokens) {
		if seen[token] {
			continue
		}

		source, ok := strings.CutSuffix(token, "_popularity")
		if !ok {
			continue
		}
		divisor, known := popularityScale[source]
		if !known {
			continue
		}

		fields = append(fields, ScaledField{
			Token:   token,
			Path:    "ratings." + source + ".popularity",
			Divisor: divisor,
		})
		seen[token] = true
	}

	return fields
}

func allRatingTokens() []string {
	var tokens []string
	for _, source := range catalog.Sources() {
		scale := ratingScale[source]
		if scale.users != 0 {
			tokens = append(tokens, source+"_users")
		}
		if scale.critics != 0 {
			tokens = append(tokens, source+"_critics")
		}
	}
	return tokens
}

func allPopularityTokens() []string {
	var tokens []string
	for _, source := range catalog.Sources() {
		if _, ok := popularityScale[source]; ok {
			tokens = append(tokens, source+"_popularity")
		}
	}
	return tokens
}

func parseTokens(tokens string, expandAll func() []string) []string {
	var result []string
	for _, token := range strings.Split(tokens, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		if token == "all" {
			result = append(result, expandAll()...)
			continue
		}
		result = append(result, token)
	}
	return result
}

func splitToken(token string) (source, metric string, ok bool) {
	idx := strings.LastIndex(token, "_")
	if idx <= 0 || idx == len(token)-1 {
		return "", "", false
	}
	metric = token[idx+1:]
	source = token[:idx]
	return source, metric, true
}
