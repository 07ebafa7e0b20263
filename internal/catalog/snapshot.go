// File: internal/catalog/snapshot.go
package catalog

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// LoadSnapshot reads every song from a sqlite catalog file without modifying it.
// Snapshots built before variations were tracked load with no variations.
func LoadSnapshot(ctx context.Context, path string) ([]Song, error) {
	db, err := gorm.Open(sqlite.Open("file:"+path+"?mode=ro"), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog snapshot %s: %w", path, err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if !db.Migrator().HasTable(&Song{}) {
		return nil, fmt.Errorf("catalog snapshot %s has no songs table", path)
	}

	tx := db.WithContext(ctx)
	if db.Migrator().HasTable(&Variation{}) {
		tx = tx.Preload("Variations")
	}
	var songs []Song
	if err := tx.Order("title ASC").Find(&songs).Error; err != nil {
		return nil, fmt.Errorf("failed to read catalog snapshot: %w", err)
	}
	return songs, nil
}
