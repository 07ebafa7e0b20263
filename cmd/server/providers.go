// File: cmd/server/providers.go
package main

import (
	"context"
	"log"

	"jazz_picker_backend/internal/catalog"
	"jazz_picker_backend/internal/config"
	"jazz_picker_backend/internal/filestorage"
	"jazz_picker_backend/internal/firebase"
	"jazz_picker_backend/internal/generate"
	"jazz_picker_backend/internal/platform/database"
	platformElasticsearch "jazz_picker_backend/internal/platform/elasticsearch"
	platformLogger "jazz_picker_backend/internal/platform/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// provideDB opens the catalog database and applies the schema. The cleanup closes it.
func provideDB(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := catalog.AutoMigrate(db); err != nil {
		database.CloseGORMDB(db, logger)
		return nil, nil, err
	}
	return db, func() { database.CloseGORMDB(db, logger) }, nil
}

// provideFirebase initializes Firebase only when generated PDFs live in a bucket. A nil
// service means the local object store is used.
func provideFirebase(cfg *config.Config, logger *zap.Logger) (*firebase.Service, func(), error) {
	if !cfg.UsesBucket() {
		return nil, func() {}, nil
	}
	fb, err := firebase.NewService(context.Background(), cfg, logger.Named("Firebase"))
	if err != nil {
		return nil, nil, err
	}
	return fb, fb.Close, nil
}

func provideObjectStore(cfg *config.Config, fb *firebase.Service, logger *zap.Logger) (filestorage.ObjectStore, error) {
	return filestorage.NewObjectStore(context.Background(), cfg, fb, logger)
}

// provideSearchIndex connects to Elasticsearch and makes sure the songs index exists. An
// unreachable cluster disables search rather than failing startup.
func provideSearchIndex(cfg *config.Config, logger *zap.Logger) catalog.SearchIndex {
	client, err := platformElasticsearch.NewClient(cfg, logger)
	if err != nil {
		logger.Error("Elasticsearch unavailable, falling back to SQL search", zap.Error(err))
		return nil
	}
	if client == nil {
		return nil
	}
	if err := platformElasticsearch.CreateSongsIndexIfNotExists(context.Background(), client, logger); err != nil {
		logger.Error("Failed to create Elasticsearch songs index, falling back to SQL search", zap.Error(err))
		return nil
	}
	return catalog.NewSearchIndex(client, logger)
}

func provideRenderer(cfg *config.Config) generate.Renderer {
	return generate.NewLilyPondRenderer(cfg.LilyPondBin, cfg.LilyPondTimeout)
}

func provideGenerateService(cfg *config.Config, repo catalog.Repository, store filestorage.ObjectStore, renderer generate.Renderer, logger *zap.Logger) *generate.ServiceImplementation {
	return generate.NewService(repo, store, renderer, cfg.LilyPondDataDir, cfg.SignedURLTTL, cfg.LilyPondTimeout, logger)
}

// provideLogger builds the application logger. The cleanup flushes it.
func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	logger, err := platformLogger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() {
		if err := logger.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
	}, nil
}
