// File: internal/catalog/service.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"jazz_picker_backend/internal/common"
	"jazz_picker_backend/internal/filestorage"

	"go.uber.org/zap"
)

// Service defines the catalog business logic.
type Service interface {
	ListSongs(ctx context.Context, query SearchQuery) (*SongListResponse, error)
	GetSong(ctx context.Context, title string) (*SongDetailResponse, error)
	CachedKeys(ctx context.Context, title string) (*CachedKeysResponse, error)
	Catalog(ctx context.Context) (*CatalogResponse, error)
	Stats(ctx context.Context) (Stats, error)

	// Version is the current catalog ETag.
	Version() string
	RefreshVersion(ctx context.Context) (string, error)

	// Jobs related
	ReindexSearch(ctx context.Context, batchSize int) (IndexResult, error)
	ImportSnapshot(ctx context.Context, path string) (int, error)

	SearchConfigured() bool
	StorageConfigured() bool
}

// ServiceImplementation implements the catalog Service interface.
type ServiceImplementation struct {
	repo   Repository
	index  SearchIndex
	store  filestorage.ObjectStore
	logger *zap.Logger

	mu      sync.RWMutex
	version string
}

// NewService creates a new catalog service. index and store may be nil.
func NewService(repo Repository, index SearchIndex, store filestorage.ObjectStore, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:   repo,
		index:  index,
		store:  store,
		logger: logger.Named("CatalogService"),
	}
}

func (s *ServiceImplementation) SearchConfigured() bool  { return s.index != nil }
func (s *ServiceImplementation) StorageConfigured() bool { return s.store != nil }

// ValidateQuery checks the filters of a song list request.
func ValidateQuery(q SearchQuery) error {
	if q.Instrument != "" && !contains(ValidInstrumentFilters, q.Instrument) {
		return common.ErrBadRequest.WithMessage("Invalid instrument. Must be one of: %s", strings.Join(ValidInstrumentFilters, ", "))
	}
	if q.SingerRange != "" && !contains(ValidSingerRanges, q.SingerRange) {
		return common.ErrBadRequest.WithMessage("Invalid singer range. Must be one of: %s", strings.Join(ValidSingerRanges, ", "))
	}
	if q.Limit < 1 || q.Limit > common.MaxLimit {
		return common.ErrBadRequest.WithMessage("Limit must be between 1 and %d", common.MaxLimit)
	}
	if q.Offset < 0 {
		return common.ErrBadRequest.WithMessage("Offset must be non-negative")
	}
	return nil
}

// ListSongs returns one page of songs. Plain text queries go to the search index when one is
// configured; filtered queries and index failures use SQL.
func (s *ServiceImplementation) ListSongs(ctx context.Context, query SearchQuery) (*SongListResponse, error) {
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}
	instrument := query.Instrument
	if instrument == "" {
		instrument = "All"
	}

	var (
		songs []Song
		total int64
		err   error
	)
	if s.index != nil && strings.TrimSpace(query.Query) != "" && !query.HasFilters() {
		songs, total, err = s.searchIndexed(ctx, query)
		if err != nil {
			s.logger.Warn("Search index query failed, falling back to SQL", zap.String("query", query.Query), zap.Error(err))
			songs, total, err = s.repo.Search(ctx, query)
		}
	} else {
		songs, total, err = s.repo.Search(ctx, query)
	}
	if err != nil {
		s.logger.Error("Failed to list songs", zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not retrieve songs.")
	}

	summaries := make([]SongSummary, 0, len(songs))
	for i := range songs {
		summaries = append(summaries, ToSongSummary(&songs[i]))
	}
	return &SongListResponse{
		Songs:      summaries,
		Total:      total,
		Limit:      query.Limit,
		Offset:     query.Offset,
		Instrument: instrument,
	}, nil
}

func (s *ServiceImplementation) searchIndexed(ctx context.Context, query SearchQuery) ([]Song, int64, error) {
	titles, total, err := s.index.SearchTitles(ctx, query.Query, query.Limit, query.Offset)
	if err != nil {
		return nil, 0, err
	}
	songs, err := s.repo.FindByTitles(ctx, titles)
	if err != nil {
		return nil, 0, err
	}
	return songs, total, nil
}

func (s *ServiceImplementation) GetSong(ctx context.Context, title string) (*SongDetailResponse, error) {
	song, err := s.repo.FindByTitle(ctx, title)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("Failed to load song", zap.String("title", title), zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not retrieve song.")
	}
	variations := make([]VariationResponse, 0, len(song.Variations))
	for i := range song.Variations {
		variations = append(variations, ToVariationResponse(&song.Variations[i]))
	}
	return &SongDetailResponse{Title: title, Variations: variations}, nil
}

// CachedKeys lists the key/clef pairs already rendered for a song. A storage listing failure
// is logged and yields an empty list.
func (s *ServiceImplementation) CachedKeys(ctx context.Context, title string) (*CachedKeysResponse, error) {
	defaultKey, defaultClef, err := s.repo.DefaultKey(ctx, title)
	if err != nil {
		return nil, common.ErrInternalServer.WithDetails("Could not retrieve song.")
	}
	if _, err := s.repo.FindByTitle(ctx, title); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound.WithMessage("Song not found: %s", title)
		}
		return nil, common.ErrInternalServer.WithDetails("Could not retrieve song.")
	}

	resp := &CachedKeysResponse{DefaultKey: defaultKey, DefaultClef: defaultClef, CachedKeys: []CachedKey{}}
	if s.store == nil {
		return resp, nil
	}

	prefix := GeneratedSongPrefix(title)
	objects, err := s.store.List(ctx, prefix)
	if err != nil {
		s.logger.Warn("Error listing cached keys", zap.String("prefix", prefix), zap.Error(err))
		return resp, nil
	}
	seen := make(map[CachedKey]bool)
	for _, obj := range objects {
		ck, ok := ParseCachedKey(prefix, obj.Key)
		if !ok || seen[ck] {
			continue
		}
		seen[ck] = true
		resp.CachedKeys = append(resp.CachedKeys, ck)
	}
	return resp, nil
}

func (s *ServiceImplementation) Catalog(ctx context.Context) (*CatalogResponse, error) {
	songs, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to load catalog", zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not retrieve catalog.")
	}
	summaries := make([]SongSummary, 0, len(songs))
	for i := range songs {
		summaries = append(summaries, ToSongSummary(&songs[i]))
	}
	return &CatalogResponse{Songs: summaries, Total: int64(len(summaries))}, nil
}

func (s *ServiceImplementation) Stats(ctx context.Context) (Stats, error) {
	songs, err := s.repo.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count songs: %w", err)
	}
	variations, err := s.repo.CountVariations(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count variations: %w", err)
	}
	return Stats{TotalSongs: songs, TotalVariations: variations}, nil
}

func (s *ServiceImplementation) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// RefreshVersion recomputes the catalog ETag from the database.
func (s *ServiceImplementation) RefreshVersion(ctx context.Context) (string, error) {
	v, err := s.repo.Fingerprint(ctx)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	changed := s.version != v
	s.version = v
	s.mu.Unlock()
	if changed {
		s.logger.Info("Catalog version updated", zap.String("etag", v))
	}
	return v, nil
}

// ReindexSearch pushes every song to the search index in batches of batchSize.
func (s *ServiceImplementation) ReindexSearch(ctx context.Context, batchSize int) (IndexResult, error) {
	var total IndexResult
	if s.index == nil {
		return total, nil
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	for offset := 0; ; offset += batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		s.logger.Debug("Fetching batch of songs", zap.Int("offset", offset), zap.Int("limit", batchSize))
		songs, err := s.repo.FindAllForSync(ctx, offset, batchSize)
		if err != nil {
			return total, err
		}
		if len(songs) == 0 {
			break
		}
		res, err := s.index.IndexSongs(ctx, songs)
		total.Indexed += res.Indexed
		total.Failed += res.Failed
		if err != nil {
			s.logger.Error("Bulk indexing batch failed", zap.Int("offset", offset), zap.Error(err))
		}
		if len(songs) < batchSize {
			break
		}
	}

	s.logger.Info("Song search index rebuilt", zap.Int("indexed", total.Indexed), zap.Int("failed", total.Failed))
	return total, nil
}

// ImportSnapshot replaces the catalog with the songs of a sqlite snapshot file and refreshes
// the version. It returns the number of songs imported.
func (s *ServiceImplementation) ImportSnapshot(ctx context.Context, path string) (int, error) {
	songs, err := LoadSnapshot(ctx, path)
	if err != nil {
		return 0, err
	}
	if err := s.repo.ReplaceAll(ctx, songs); err != nil {
		return 0, err
	}
	if _, err := s.RefreshVersion(ctx); err != nil {
		return len(songs), err
	}
	s.logger.Info("Catalog snapshot imported", zap.String("path", path), zap.Int("songs", len(songs)))
	return len(songs), nil
}
