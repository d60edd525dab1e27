package cfg

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	MongoURI string `long:"mongo-uri" env:"MONGO_URI" default:"mongodb://localhost:27017" description:"MongoDB connection URI"`
	DBName   string `long:"db-name" env:"DB_NAME" default:"whatson" description:"Database name"`

	// Application configuration
	SourcesDir     string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing per-source configuration files"`
	Port           string `long:"port" env:"PORT" default:"8081" description:"HTTP server port"`
	BaseUrl        string `long:"base-url" env:"BASE_URL" default:"http://localhost:8081" description:"Public base URL of the query API, used by the reconciliation run"`
	WorkerCount    int    `long:"worker-count" env:"WORKER_COUNT" default:"1" description:"Number of background workers for ingestion tasks"`
	IngestInterval int    `long:"ingest-interval" env:"INGEST_INTERVAL" default:"43200" description:"Ingestion run interval in seconds (0 disables scheduled runs)"`
	SeedMovieIDs   string `long:"seed-movie-ids" env:"SEED_MOVIE_IDS" description:"Comma-separated TMDB movie ids to bootstrap an empty collection"`
	SeedTVShowIDs  string `long:"seed-tvshow-ids" env:"SEED_TVSHOW_IDS" description:"Comma-separated TMDB TV show ids to bootstrap an empty collection"`

	// Query engine configuration
	DefaultLimit     int `long:"default-limit" env:"DEFAULT_LIMIT" default:"20" description:"Default page size for the query API"`
	MaxLimit         int `long:"max-limit" env:"MAX_LIMIT" default:"200" description:"Maximum page size for the query API"`
	MaxSeasonsBucket int `long:"max-seasons" env:"MAX_SEASONS" default:"5" description:"Season count at which the seasons filter becomes an open upper bucket"`

	// Ingestion fetch policy
	FetchRetryCount      int `long:"fetch-retry-count" env:"FETCH_RETRY_COUNT" default:"3" description:"Fetch attempts per source before skipping a title"`
	FetchRetryDelay      int `long:"fetch-retry-delay" env:"FETCH_RETRY_DELAY" default:"2" description:"Delay between fetch attempts in seconds"`
	AggressiveRetryCount int `long:"aggressive-retry-count" env:"AGGRESSIVE_RETRY_COUNT" default:"1" description:"Fetch attempts for sources flagged as aggressive rate limiters"`
	TitleDelayMs         int `long:"title-delay-ms" env:"TITLE_DELAY_MS" default:"500" description:"Minimum delay between consecutive titles during ingestion"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"WhatsOn API/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Paris)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		MongoURI:             raw.MongoURI,
		DBName:               raw.DBName,
		SourcesDir:           raw.SourcesDir,
		Port:                 raw.Port,
		BaseUrl:              strings.TrimRight(raw.BaseUrl, "/"),
		WorkerCount:          raw.WorkerCount,
		IngestInterval:       raw.IngestInterval,
		SeedMovieIDs:         parseIDList(raw.SeedMovieIDs),
		SeedTVShowIDs:        parseIDList(raw.SeedTVShowIDs),
		DefaultLimit:         raw.DefaultLimit,
		MaxLimit:             raw.MaxLimit,
		MaxSeasonsBucket:     raw.MaxSeasonsBucket,
		FetchRetryCount:      raw.FetchRetryCount,
		FetchRetryDelay:      raw.FetchRetryDelay,
		AggressiveRetryCount: raw.AggressiveRetryCount,
		TitleDelayMs:         raw.TitleDelayMs,
		UserAgent:            raw.UserAgent,
		Timezone:             raw.Timezone,
		Debug:                raw.Debug,
		Version:              GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Intended for tests.
func Set(c *Cfg) {
	globalCfg = c
}

func parseIDList(value string) []int {
	if value == "" {
		return nil
	}

	var ids []int
	for _, part := range strings.Split(value, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
