// File: internal/catalogclient/store.go
package catalogclient

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"jazz_picker_backend/internal/catalog"

	"go.uber.org/zap"
)

const catalogCacheFile = "catalog.json"

// CatalogFetcher is the part of Client the store refreshes from.
type CatalogFetcher interface {
	Catalog(ctx context.Context, etag string) (*CatalogResult, error)
}

type cachedCatalog struct {
	ETag    string                `json:"etag"`
	SavedAt time.Time             `json:"savedAt"`
	Songs   []catalog.SongSummary `json:"songs"`
}

// Store is a local copy of the whole catalog, persisted as JSON between runs.
type Store struct {
	fetcher   CatalogFetcher
	cachePath string
	logger    *zap.Logger

	mu    sync.RWMutex
	songs []catalog.SongSummary
	etag  string
	rng   *rand.Rand
}

// NewStore creates a store caching into cacheDir. An empty cacheDir keeps the catalog in
// memory only.
func NewStore(fetcher CatalogFetcher, cacheDir string, logger *zap.Logger) *Store {
	s := &Store{
		fetcher: fetcher,
		logger:  logger.Named("CatalogStore"),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if cacheDir != "" {
		s.cachePath = filepath.Join(cacheDir, catalogCacheFile)
	}
	return s
}

// Load reads the cached catalog, then refreshes it from the server. A refresh failure is
// only returned when there is no cached copy to fall back on.
func (s *Store) Load(ctx context.Context) error {
	if err := s.loadCache(); err != nil {
		s.logger.Warn("Ignoring unreadable catalog cache", zap.String("path", s.cachePath), zap.Error(err))
	}
	err := s.Refresh(ctx)
	if err == nil {
		return nil
	}
	if len(s.Songs()) > 0 {
		s.logger.Warn("Catalog refresh failed, using cached catalog", zap.Error(err))
		return nil
	}
	return err
}

// Refresh fetches the catalog, skipping the download when the server's copy is unchanged.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.RLock()
	etag := s.etag
	if len(s.songs) == 0 {
		etag = ""
	}
	s.mu.RUnlock()

	res, err := s.fetcher.Catalog(ctx, etag)
	if err != nil {
		return fmt.Errorf("refreshing catalog: %w", err)
	}
	if res.NotModified {
		s.logger.Debug("Catalog unchanged", zap.String("etag", etag))
		return nil
	}

	songs := append([]catalog.SongSummary(nil), res.Catalog.Songs...)
	sort.SliceStable(songs, func(i, j int) bool {
		return strings.ToLower(songs[i].Title) < strings.ToLower(songs[j].Title)
	})

	s.mu.Lock()
	s.songs = songs
	s.etag = res.ETag
	s.mu.Unlock()

	if err := s.saveCache(); err != nil {
		s.logger.Warn("Failed to write catalog cache", zap.String("path", s.cachePath), zap.Error(err))
	}
	s.logger.Info("Catalog refreshed", zap.Int("songs", len(songs)))
	return nil
}

func (s *Store) loadCache() error {
	if s.cachePath == "" {
		return nil
	}
	data, err := os.ReadFile(s.cachePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var cached cachedCatalog
	if err := json.Unmarshal(data, &cached); err != nil {
		return err
	}
	s.mu.Lock()
	s.songs = cached.Songs
	s.etag = cached.ETag
	s.mu.Unlock()
	return nil
}

func (s *Store) saveCache() error {
	if s.cachePath == "" {
		return nil
	}
	s.mu.RLock()
	data, err := json.Marshal(cachedCatalog{ETag: s.etag, SavedAt: time.Now().UTC(), Songs: s.songs})
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.cachePath), 0o755); err != nil {
		return err
	}
	tmp := s.cachePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.cachePath)
}

// Songs returns every song, sorted by title.
func (s *Store) Songs() []catalog.SongSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]catalog.SongSummary(nil), s.songs...)
}

// ETag is the catalog version the store holds.
func (s *Store) ETag() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.etag
}

// Search matches q against titles and composers, ignoring case. An empty q returns all songs.
func (s *Store) Search(q string) []catalog.SongSummary {
	q = strings.ToLower(strings.TrimSpace(q))
	songs := s.Songs()
	if q == "" {
		return songs
	}
	matches := make([]catalog.SongSummary, 0)
	for _, song := range songs {
		if strings.Contains(strings.ToLower(song.Title), q) || strings.Contains(strings.ToLower(song.Composer), q) {
			matches = append(matches, song)
		}
	}
	return matches
}

// Composers lists each distinct composer once, sorted.
func (s *Store) Composers() []string {
	seen := make(map[string]struct{})
	var composers []string
	for _, song := range s.Songs() {
		if song.Composer == "" {
			continue
		}
		if _, ok := seen[song.Composer]; ok {
			continue
		}
		seen[song.Composer] = struct{}{}
		composers = append(composers, song.Composer)
	}
	sort.Strings(composers)
	return composers
}

// Random picks a song, or reports false when the catalog is empty.
func (s *Store) Random() (catalog.SongSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.songs) == 0 {
		return catalog.SongSummary{}, false
	}
	return s.songs[s.rng.Intn(len(s.songs))], true
}

// BySlug finds a song by its URL slug.
func (s *Store) BySlug(slug string) (catalog.SongSummary, bool) {
	return catalog.FindSongBySlug(s.Songs(), slug)
}
