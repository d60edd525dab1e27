package cfg

type Cfg struct {
	// Database configuration
	MongoURI string
	DBName   string

	// Application configuration
	SourcesDir     string
	Port           string
	BaseUrl        string
	WorkerCount    int
	IngestInterval int
	SeedMovieIDs   []int
	SeedTVShowIDs  []int

	// Query engine configuration
	DefaultLimit     int
	MaxLimit         int
	MaxSeasonsBucket int

	// Ingestion fetch policy
	FetchRetryCount      int
	FetchRetryDelay      int
	AggressiveRetryCount int
	TitleDelayMs         int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
