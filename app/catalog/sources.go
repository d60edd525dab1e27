package catalog

// Tracked rating sources. The set is fixed and domain-specific; per-source
// runtime settings (URLs, retry class, quality thresholds) live in the
// sources YAML configuration.
const (
	SourceAllocine       = "allocine"
	SourceBetaseries     = "betaseries"
	SourceIMDB           = "imdb"
	SourceMetacritic     = "metacritic"
	SourceRottenTomatoes = "rotten_tomatoes"
	SourceLetterboxd     = "letterboxd"
	SourceSensCritique   = "senscritique"
	SourceTMDB           = "tmdb"
	SourceTrakt          = "trakt"
	SourceTVTime         = "tv_time"
)

var sources = []string{
	SourceAllocine,
	SourceBetaseries,
	SourceIMDB,
	SourceMetacritic,
	SourceRottenTomatoes,
	SourceLetterboxd,
	SourceSensCritique,
	SourceTMDB,
	SourceTrakt,
	SourceTVTime,
}

// Sources returns the tracked source names in stable order.
func Sources() []string {
	result := make([]string, len(sources))
	copy(result, sources)
	return result
}

// Canonical TV show statuses. Query input is case-normalized against these.
var Statuses = []string{"Canceled", "Ended", "Ongoing", "Pilot", "Soon", "Unknown"}
