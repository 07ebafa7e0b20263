package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func intPtr(v int) *int { return &v }

// newTestDB opens a private in-memory catalog with the schema applied.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, AutoMigrate(db))
	return db
}

func fixtureSongs() []Song {
	return []Song{
		{
			Title: "Autumn Leaves", DefaultKey: "g", Composer: "Joseph Kosma",
			CoreFiles: []string{"Autumn Leaves - Ly - Core.ly"}, LowNoteMidi: intPtr(55), HighNoteMidi: intPtr(72),
			Variations: []Variation{
				{Filename: "Autumn Leaves - Ly - G Standard.ly", DisplayName: "Standard (G)", Key: "g", Instrument: "C", VariationType: "Standard"},
				{Filename: "Autumn Leaves - Ly - A Bb.ly", DisplayName: "Bb (A)", Key: "a", Instrument: "Bb", VariationType: "Standard"},
			},
		},
		{
			Title: "Blue Bossa", DefaultKey: "c", Composer: "Kenny Dorham",
			CoreFiles: []string{"Blue Bossa - Ly - Core.ly"},
			Variations: []Variation{
				{Filename: "Blue Bossa - Ly - C Standard.ly", DisplayName: "Standard (C)", Key: "c", Instrument: "C", VariationType: "Standard"},
			},
		},
		{
			Title: "Blue Monk", DefaultKey: "bf", Composer: "Thelonious Monk",
			CoreFiles: []string{"Blue Monk - Ly - Core.ly"},
			Variations: []Variation{
				{Filename: "Blue Monk - Ly - Bf Alto.ly", DisplayName: "Alto (Bb)", Key: "bf", Instrument: "C", VariationType: "Alto/Mezzo/Soprano"},
				{Filename: "Blue Monk - Ly - Bf Bass.ly", DisplayName: "Bass (Bb)", Key: "bf", Instrument: "Bass", VariationType: "Standard"},
			},
		},
	}
}

func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	songs := fixtureSongs()
	require.NoError(t, db.Create(&songs).Error)
}
