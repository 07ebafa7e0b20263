// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"jazz_picker_backend/internal/app"
	"jazz_picker_backend/internal/catalog"
	"jazz_picker_backend/internal/config"
	"jazz_picker_backend/internal/generate"
	"jazz_picker_backend/internal/jobs"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		provideLogger,
		provideDB,
		provideFirebase,
		provideObjectStore,
		provideSearchIndex,

		// Catalog
		catalog.NewGORMRepository,
		catalog.NewService,
		wire.Bind(new(catalog.Service), new(*catalog.ServiceImplementation)),
		catalog.NewHandler,

		// PDF generation
		provideRenderer,
		provideGenerateService,
		wire.Bind(new(generate.Service), new(*generate.ServiceImplementation)),
		generate.NewHandler,

		// Jobs
		jobs.NewCatalogSyncJob,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}
