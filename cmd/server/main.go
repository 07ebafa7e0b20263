// File: cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log" // Standard log for critical startup/shutdown messages before/after zap is active
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"jazz_picker_backend/internal/catalog"
	"jazz_picker_backend/internal/config"
	"jazz_picker_backend/internal/filestorage"

	"go.uber.org/zap"
)

func main() {
	syncSongsCmd := flag.NewFlagSet("sync-songs", flag.ExitOnError)
	batchSize := syncSongsCmd.Int("batch-size", 100, "Batch size for indexing songs")

	pullCatalogCmd := flag.NewFlagSet("pull-catalog", flag.ExitOnError)
	outPath := pullCatalogCmd.String("out", filepath.Join("cache", "catalog.db"), "Where to keep the downloaded catalog snapshot")

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "sync-songs":
			syncSongsCmd.Parse(os.Args[2:])
			runCommand(func(ctx context.Context, deps *commandDeps) error {
				return runSongSync(ctx, deps, *batchSize)
			})
			return
		case "pull-catalog":
			pullCatalogCmd.Parse(os.Args[2:])
			runCommand(func(ctx context.Context, deps *commandDeps) error {
				return runCatalogPull(ctx, deps, *outPath)
			})
			return
		}
	}

	// Default: Start server
	startServer()
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("FATAL: Server failed to start or crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
	log.Println("INFO: Application exiting.")
}

// commandDeps are the pieces the maintenance subcommands share.
type commandDeps struct {
	cfg     *config.Config
	logger  *zap.Logger
	catalog *catalog.ServiceImplementation
	store   filestorage.ObjectStore
}

// runCommand builds the catalog stack without the HTTP server and runs fn with it.
func runCommand(fn func(ctx context.Context, deps *commandDeps) error) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	logger, syncLogger, err := provideLogger(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer syncLogger()

	db, closeDB, err := provideDB(cfg, logger)
	if err != nil {
		logger.Fatal("FATAL: Failed to initialize database", zap.Error(err))
	}
	defer closeDB()

	fb, closeFirebase, err := provideFirebase(cfg, logger)
	if err != nil {
		logger.Fatal("FATAL: Failed to initialize Firebase", zap.Error(err))
	}
	defer closeFirebase()

	store, err := provideObjectStore(cfg, fb, logger)
	if err != nil {
		logger.Fatal("FATAL: Failed to initialize object storage", zap.Error(err))
	}

	deps := &commandDeps{
		cfg:     cfg,
		logger:  logger,
		catalog: catalog.NewService(catalog.NewGORMRepository(db), provideSearchIndex(cfg, logger), store, logger),
		store:   store,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	if err := fn(ctx, deps); err != nil {
		logger.Error("Command failed", zap.Error(err))
		cancel()
		closeFirebase()
		closeDB()
		syncLogger()
		os.Exit(1)
	}
}

// runSongSync rebuilds the Elasticsearch songs index from the catalog database.
func runSongSync(ctx context.Context, deps *commandDeps, batchSize int) error {
	if !deps.catalog.SearchConfigured() {
		deps.logger.Fatal("FATAL: Search index is not available, ensure ELASTICSEARCH_URL is set and reachable.")
	}
	deps.logger.Info("Starting song synchronization to Elasticsearch...", zap.Int("batchSize", batchSize))

	res, err := deps.catalog.ReindexSearch(ctx, batchSize)
	if err != nil {
		return err
	}
	deps.logger.Info("Song synchronization process finished.",
		zap.Int("totalSongsSyncedSuccessfully", res.Indexed),
		zap.Int("totalSongsFailed", res.Failed),
	)
	if res.Failed > 0 {
		return fmt.Errorf("%d songs failed to sync", res.Failed)
	}
	return nil
}

// runCatalogPull keeps a local copy of the catalog snapshot current and imports it.
func runCatalogPull(ctx context.Context, deps *commandDeps, outPath string) error {
	res, err := filestorage.SyncFile(ctx, deps.store, deps.cfg.CatalogObjectKey, outPath, deps.logger)
	if err != nil {
		return err
	}
	if res.Missing {
		if _, statErr := os.Stat(outPath); statErr != nil {
			deps.logger.Warn("No catalog snapshot in storage and no local copy, nothing to import",
				zap.String("key", deps.cfg.CatalogObjectKey))
			return nil
		}
	}

	n, err := deps.catalog.ImportSnapshot(ctx, outPath)
	if err != nil {
		return err
	}
	deps.logger.Info("Catalog snapshot imported",
		zap.String("path", outPath),
		zap.Bool("downloaded", res.Downloaded),
		zap.Int("songs", n),
		zap.String("etag", deps.catalog.Version()),
	)
	return nil
}
