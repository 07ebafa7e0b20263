// File: cmd/migrate/main.go

// Command migrate moves every user and setlist that predates bands into a shared
// "Legacy Band". It takes no flags; the service account path comes from
// FIREBASE_SERVICE_ACCOUNT_KEY_PATH (default scripts/service-account.json).
package main

import (
	"context"
	"log"
	"os"

	"jazz_picker_backend/internal/config"
	"jazz_picker_backend/internal/firebase"
	"jazz_picker_backend/internal/migration"
	"jazz_picker_backend/internal/platform/logger"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("FATAL: Failed to load configuration: %v", err)
		return 1
	}
	appLogger, err := logger.NewCLI(cfg)
	if err != nil {
		log.Printf("FATAL: Failed to initialize logger: %v", err)
		return 1
	}
	defer appLogger.Sync()

	ctx := context.Background()
	fb, err := firebase.NewService(ctx, cfg, appLogger.Named("Firebase"))
	if err != nil {
		appLogger.Error("Migration failed", zap.Error(err))
		return 1
	}
	defer fb.Close()

	client, err := fb.Firestore(ctx)
	if err != nil {
		appLogger.Error("Migration failed", zap.Error(err))
		return 1
	}

	appLogger.Info("Starting migration to groups")
	report, err := migration.NewMigrator(migration.NewFirestoreStore(client), appLogger).Run(ctx)
	report.Print(os.Stdout)
	if err != nil {
		appLogger.Error("Migration failed", zap.Error(err))
		return 1
	}
	return 0
}
