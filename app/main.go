package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pierrevano/whatson-api/app/api"
	"github.com/pierrevano/whatson-api/app/catalog"
	"github.com/pierrevano/whatson-api/app/cfg"
	"github.com/pierrevano/whatson-api/app/database"
	"github.com/pierrevano/whatson-api/app/ingest"
	"github.com/pierrevano/whatson-api/app/sources"
	"github.com/pierrevano/whatson-api/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was requested
		return
	}

	if appCfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	slog.Info("Starting What's on? API server", "version", appCfg.Version)

	ctx := context.Background()

	db, err := database.NewConnection(ctx, appCfg.MongoURI, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to MongoDB", "database", appCfg.DBName)

	version, dirty, err := database.RunMigrations(db, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Migrations applied", "version", version, "dirty", dirty)

	configCache := sources.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "sources_dir", appCfg.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Source configurations loaded", "count", configCache.GetConfigCount())

	titleRepo := database.NewTitleRepository(db)

	httpClient := &http.Client{Timeout: 30 * time.Second}

	registry := sources.NewRegistry()
	if config, err := configCache.GetConfig(catalog.SourceTMDB); err == nil {
		if err := registry.Register(sources.NewTMDBAdapter(config, httpClient, appCfg.UserAgent)); err != nil {
			slog.Warn("Failed to register adapter", "source", catalog.SourceTMDB, "error", err)
		}
	}
	if config, err := configCache.GetConfig(catalog.SourceTrakt); err == nil {
		if err := registry.Register(sources.NewTraktAdapter(config, httpClient, appCfg.UserAgent)); err != nil {
			slog.Warn("Failed to register adapter", "source", catalog.SourceTrakt, "error", err)
		}
	}
	slog.Info("Source adapters registered", "adapters", registry.Names())

	baseURL := appCfg.BaseUrl
	if baseURL == "" {
		baseURL = "http://localhost:" + appCfg.Port
	}

	fetcher := ingest.NewFetcher(registry, configCache,
		appCfg.FetchRetryCount, appCfg.AggressiveRetryCount,
		time.Duration(appCfg.FetchRetryDelay)*time.Second)
	apiClient := ingest.NewAPIClient(baseURL, httpClient, appCfg.UserAgent)
	reconciler := ingest.NewReconciler(apiClient)
	gate := ingest.NewQualityGate(titleRepo, configCache)
	throttle := ingest.NewThrottle(time.Duration(appCfg.TitleDelayMs) * time.Millisecond)

	runner := ingest.NewRunner(titleRepo, fetcher, reconciler, gate, throttle, seedRefs(appCfg))

	slog.Info("Starting background scheduler", "worker_count", appCfg.WorkerCount, "ingest_interval", appCfg.IngestInterval)
	scheduler := tasks.NewScheduler(runner)
	scheduler.Start()

	handler := api.NewHandler(titleRepo, configCache)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
		exitCode = 1
	case err := <-scheduler.Fatal():
		slog.Error("Ingestion aborted", "error", err)
		exitCode = 1
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	scheduler.Stop()
	db.Close(shutdownCtx)

	slog.Info("Shutdown complete")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// seedRefs turns the configured bootstrap id lists into title references.
func seedRefs(appCfg *cfg.Cfg) []catalog.TitleRef {
	refs := make([]catalog.TitleRef, 0, len(appCfg.SeedMovieIDs)+len(appCfg.SeedTVShowIDs))
	for _, id := range appCfg.SeedMovieIDs {
		refs = append(refs, catalog.TitleRef{ID: id, ItemType: catalog.ItemTypeMovie})
	}
	for _, id := range appCfg.SeedTVShowIDs {
		refs = append(refs, catalog.TitleRef{ID: id, ItemType: catalog.ItemTypeTVShow})
	}
	return refs
}
