// File: internal/catalog/repository.go
package catalog

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"jazz_picker_backend/internal/common"

	"gorm.io/gorm"
)

// Repository defines the data operations on the song catalog.
type Repository interface {
	Search(ctx context.Context, query SearchQuery) ([]Song, int64, error)
	FindByTitle(ctx context.Context, title string) (*Song, error)
	FindByTitles(ctx context.Context, titles []string) ([]Song, error)
	FindAll(ctx context.Context) ([]Song, error)
	FindAllForSync(ctx context.Context, offset, limit int) ([]Song, error)
	DefaultKey(ctx context.Context, title string) (key, clef string, err error)
	CoreFiles(ctx context.Context, title string) ([]string, error)
	Count(ctx context.Context) (int64, error)
	CountVariations(ctx context.Context) (int64, error)
	Fingerprint(ctx context.Context) (string, error)
	ReplaceAll(ctx context.Context, songs []Song) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM catalog repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// AutoMigrate creates or updates the catalog tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Song{}, &Variation{}); err != nil {
		return fmt.Errorf("failed to migrate catalog schema: %w", err)
	}
	return nil
}

func (r *gormRepository) filtered(ctx context.Context, query SearchQuery) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&Song{})
	if q := strings.TrimSpace(query.Query); q != "" {
		tx = tx.Where("LOWER(songs.title) LIKE ?", "%"+strings.ToLower(q)+"%")
	}
	if query.Instrument != "" && query.Instrument != "All" {
		tx = tx.Where("EXISTS (SELECT 1 FROM variations v WHERE v.song_id = songs.id AND v.instrument = ?)", query.Instrument)
	}
	if query.SingerRange != "" && query.SingerRange != "All" {
		tx = tx.Where("EXISTS (SELECT 1 FROM variations v WHERE v.song_id = songs.id AND v.variation_type = ?)", query.SingerRange)
	}
	return tx
}

// Search matches titles case-insensitively and returns one page plus the total.
func (r *gormRepository) Search(ctx context.Context, query SearchQuery) ([]Song, int64, error) {
	var total int64
	if err := r.filtered(ctx, query).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count songs: %w", err)
	}

	var songs []Song
	err := r.filtered(ctx, query).
		Order("songs.title ASC").
		Limit(query.Limit).
		Offset(query.Offset).
		Find(&songs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search songs: %w", err)
	}
	return songs, total, nil
}

// FindByTitle retrieves a song with its variations by exact title.
func (r *gormRepository) FindByTitle(ctx context.Context, title string) (*Song, error) {
	var song Song
	err := r.db.WithContext(ctx).
		Preload("Variations", func(db *gorm.DB) *gorm.DB { return db.Order("variations.filename ASC") }).
		Where("title = ?", title).
		First(&song).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithMessage("Song not found")
		}
		return nil, err
	}
	return &song, nil
}

// FindByTitles returns the songs with the given titles in the order the titles were given.
// Unknown titles are skipped.
func (r *gormRepository) FindByTitles(ctx context.Context, titles []string) ([]Song, error) {
	if len(titles) == 0 {
		return []Song{}, nil
	}
	var found []Song
	if err := r.db.WithContext(ctx).Where("title IN ?", titles).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to load songs by title: %w", err)
	}
	byTitle := make(map[string]Song, len(found))
	for _, s := range found {
		byTitle[s.Title] = s
	}
	ordered := make([]Song, 0, len(found))
	for _, t := range titles {
		if s, ok := byTitle[t]; ok {
			ordered = append(ordered, s)
		}
	}
	return ordered, nil
}

// FindAll returns every song ordered by title.
func (r *gormRepository) FindAll(ctx context.Context) ([]Song, error) {
	var songs []Song
	if err := r.db.WithContext(ctx).Order("title ASC").Find(&songs).Error; err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return songs, nil
}

// FindAllForSync pages through songs by primary key for bulk indexing.
func (r *gormRepository) FindAllForSync(ctx context.Context, offset, limit int) ([]Song, error) {
	var songs []Song
	err := r.db.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&songs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch songs for sync: %w", err)
	}
	return songs, nil
}

// DefaultKey returns a song's concert key and clef, falling back to c/treble for unknown
// songs. Clef is always treble; bass parts come from the player's instrument.
func (r *gormRepository) DefaultKey(ctx context.Context, title string) (string, string, error) {
	var song Song
	err := r.db.WithContext(ctx).Select("default_key").Where("title = ?", title).First(&song).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "c", "treble", nil
		}
		return "", "", err
	}
	if song.DefaultKey == "" {
		return "c", "treble", nil
	}
	return song.DefaultKey, "treble", nil
}

// CoreFiles returns the LilyPond sources of a song.
func (r *gormRepository) CoreFiles(ctx context.Context, title string) ([]string, error) {
	var song Song
	err := r.db.WithContext(ctx).Select("id", "core_files").Where("title = ?", title).First(&song).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithMessage("Song not found: %s", title)
		}
		return nil, err
	}
	return song.CoreFiles, nil
}

func (r *gormRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Song{}).Count(&n).Error
	return n, err
}

func (r *gormRepository) CountVariations(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Variation{}).Count(&n).Error
	return n, err
}

// Fingerprint hashes the catalog's size and newest update. It changes whenever songs are
// added, removed or edited, and is used as the list ETag.
func (r *gormRepository) Fingerprint(ctx context.Context) (string, error) {
	var row struct {
		Songs  int64
		Latest string
	}
	err := r.db.WithContext(ctx).Model(&Song{}).
		Select("COUNT(*) AS songs, COALESCE(CAST(MAX(updated_at) AS TEXT), '') AS latest").
		Scan(&row).Error
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint catalog: %w", err)
	}
	variations, err := r.CountVariations(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint catalog: %w", err)
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%d|%d|%s", row.Songs, variations, row.Latest)))
	return hex.EncodeToString(sum[:]), nil
}

// ReplaceAll swaps the whole catalog for songs in one transaction.
func (r *gormRepository) ReplaceAll(ctx context.Context, songs []Song) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Variation{}).Error; err != nil {
			return fmt.Errorf("failed to clear variations: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Song{}).Error; err != nil {
			return fmt.Errorf("failed to clear songs: %w", err)
		}
		if len(songs) == 0 {
			return nil
		}
		now := time.Now().UTC()
		for i := range songs {
			songs[i].ID = 0
			songs[i].UpdatedAt = now
			for j := range songs[i].Variations {
				songs[i].Variations[j].ID = 0
				songs[i].Variations[j].SongID = 0
			}
		}
		if err := tx.CreateInBatches(songs, 100).Error; err != nil {
			return fmt.Errorf("failed to insert songs: %w", err)
		}
		return nil
	})
}
