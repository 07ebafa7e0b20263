package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"jazz_picker_backend/internal/common"
	"jazz_picker_backend/internal/filestorage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockCatalogRepository is a mock type for catalog.Repository
type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) Search(ctx context.Context, query SearchQuery) ([]Song, int64, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]Song), args.Get(1).(int64), args.Error(2)
}

func (m *MockCatalogRepository) FindByTitle(ctx context.Context, title string) (*Song, error) {
	args := m.Called(ctx, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Song), args.Error(1)
}

func (m *MockCatalogRepository) FindByTitles(ctx context.Context, titles []string) ([]Song, error) {
	args := m.Called(ctx, titles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Song), args.Error(1)
}

func (m *MockCatalogRepository) FindAll(ctx context.Context) ([]Song, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Song), args.Error(1)
}

func (m *MockCatalogRepository) FindAllForSync(ctx context.Context, offset, limit int) ([]Song, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Song), args.Error(1)
}

func (m *MockCatalogRepository) DefaultKey(ctx context.Context, title string) (string, string, error) {
	args := m.Called(ctx, title)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockCatalogRepository) CoreFiles(ctx context.Context, title string) ([]string, error) {
	args := m.Called(ctx, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCatalogRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCatalogRepository) CountVariations(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCatalogRepository) Fingerprint(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockCatalogRepository) ReplaceAll(ctx context.Context, songs []Song) error {
	args := m.Called(ctx, songs)
	return args.Error(0)
}

// MockSearchIndex is a mock type for catalog.SearchIndex
type MockSearchIndex struct {
	mock.Mock
}

func (m *MockSearchIndex) SearchTitles(ctx context.Context, query string, limit, offset int) ([]string, int64, error) {
	args := m.Called(ctx, query, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]string), args.Get(1).(int64), args.Error(2)
}

func (m *MockSearchIndex) IndexSongs(ctx context.Context, songs []Song) (IndexResult, error) {
	args := m.Called(ctx, songs)
	return args.Get(0).(IndexResult), args.Error(1)
}

type CatalogServiceTestSuite struct {
	repo    *MockCatalogRepository
	index   *MockSearchIndex
	store   *filestorage.LocalStore
	service *ServiceImplementation
}

func setupCatalogServiceTestSuite(t *testing.T, withIndex bool) *CatalogServiceTestSuite {
	ts := &CatalogServiceTestSuite{
		repo:  new(MockCatalogRepository),
		index: new(MockSearchIndex),
	}
	store, err := filestorage.NewLocalStore(t.TempDir(), "", zap.NewNop())
	require.NoError(t, err)
	ts.store = store

	var index SearchIndex
	if withIndex {
		index = ts.index
	}
	ts.service = NewService(ts.repo, index, ts.store, zap.NewNop())
	return ts
}

func TestService_ListSongs_UsesSQLWithoutIndex(t *testing.T) {
	ts := setupCatalogServiceTestSuite(t, false)
	ctx := context.Background()
	q := SearchQuery{Query: "blue", Limit: 20}

	ts.repo.On("Search", ctx, q).Return([]Song{{Title: "Blue Bossa", DefaultKey: "c"}}, int64(1), nil).Once()

	resp, err := ts.service.ListSongs(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Total)
	assert.Equal(t, "All", resp.Instrument)
	assert.Equal(t, 20, resp.Limit)
	require.Len(t, resp.Songs, 1)
	assert.Equal(t, "Blue Bossa", resp.Songs[0].Title)
	ts.repo.AssertExpectations(t)
}

func TestService_ListSongs_UsesIndexForPlainQuery(t *testing.T) {
	ts := setupCatalogServiceTestSuite(t, true)
	ctx := context.Background()
	q := SearchQuery{Query: "monk", Limit: 10}

	ts.index.On("SearchTitles", ctx, "monk", 10, 0).Return([]string{"Blue Monk", "Straight No Chaser"}, int64(2), nil).Once()
	ts.repo.On("FindByTitles", ctx, []string{"Blue Monk", "Straight No Chaser"}).
		Return([]Song{{Title: "Blue Monk"}, {Title: "Straight No Chaser"}}, nil).Once()

	resp, err := ts.service.ListSongs(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)
	assert.Len(t, resp.Songs, 2)
	ts.repo.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	ts.index.AssertExpectations(t)
}

func TestService_ListSongs_FiltersBypassIndex(t *testing.T) {
	ts := setupCatalogServiceTestSuite(t, true)
	ctx := context.Background()
	q := SearchQuery{Query: "monk", Instrument: "Bb", Limit: 10}

	ts.repo.On("Search", ctx, q).Return([]Song{}, int64(0), nil).Once()

	_, err := ts.service.ListSongs(ctx, q)
	require.NoError(t, err)
	ts.index.AssertNotCalled(t, "SearchTitles", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ListSongs_IndexFailureFallsBackToSQL(t *testing.T) {
	ts := setupCatalogServiceTestSuite(t, true)
	ctx := context.Background()
	q := SearchQuery{Query: "monk", Limit: 10}

	ts.index.On("SearchTitles", ctx, "monk", 10, 0).Return(nil, int64(0), errors.New("connection refused")).Once()
	ts.repo.On("Search", ctx, q).Return([]Song{{Title: "Blue Monk"}}, int64(1), nil).Once()

	resp, err := ts.service.ListSongs(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Total)
}

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   SearchQuery
		wantMsg string
	}{
		{"valid", SearchQuery{Limit: 50, Instrument: "Eb", SingerRange: "Standard"}, ""},
		{"bad instrument", SearchQuery{Limit: 50, Instrument: "Tuba"}, "Invalid instrument. Must be one of: All, C, Bb, Eb, Bass"},
		{"bad singer range", SearchQuery{Limit: 50, SingerRange: "Falsetto"}, "Invalid singer range"},
		{"limit too small", SearchQuery{Limit: 0}, "Limit must be between 1 and 200"},
		{"limit too large", SearchQuery{Limit: 201}, "Limit must be between 1 and 200"},
		{"negative offset", SearchQuery{Limit: 1, Offset: -1}, "Offset must be non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuery(tt.query)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrBadRequest))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestService_GetSong(t *testing.T) {
	ts := setupCatalogServiceTestSuite(t, false)
	ctx := context.Background()

	ts.repo.On("FindByTitle", ctx, "Blue Bossa").Return(&Song{
		Title:      "Blue Bossa",
		Variations: []Variation{{Filename: "Blue Bossa - Ly - C Standard.ly", Key: "c", Instrument: "C"}},
	}, nil).Once()
	ts.repo.On("FindByTitle", ctx, "Nope").Return(nil, common.ErrNotFound.WithMessage("Song not found")).Once()

	resp, err := ts.service.GetSong(ctx, "Blue Bossa")
	require.NoError(t, err)
	require.Len(t, resp.Variations, 1)
	assert.Equal(t, "Blue Bossa - Ly - C Standard", resp.Variations[0].ID)

	_, err = ts.service.GetSong(ctx, "Nope")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestService_CachedKeys(t *testing.T) {
	ts := setupCatalogServiceTestSuite(t, false)
	ctx := context.Background()

	for _, key := range []string{
		"generated/blue-bossa-c-treble.pdf",
		"generated/blue-bossa-ef-bass.pdf",
		"generated/blue-bossa-ef-bass-trombone.pdf",
		"generated/blue-bossa-xx-treble.pdf",
		"generated/blue-bossanova-c-treble.pdf",
	} {
		require.NoError(t, ts.store.Put(ctx, key, strings.NewReader("pdf"), "application/pdf"))
	}

	ts.repo.On("DefaultKey", ctx, "Blue Bossa").Return("c", "treble", nil).Once()
	ts.repo.On("FindByTitle", ctx, "Blue Bossa").Return(&Song{Title: "Blue Bossa"}, nil).Once()

	resp, err := ts.service.CachedKeys(ctx, "Blue Bossa")
	require.NoError(t, err)
	assert.Equal(t, "c", resp.DefaultKey)
	assert.Equal(t, "treble", resp.DefaultClef)
	assert.ElementsMatch(t, []CachedKey{{Key: "c", Clef: "treble"}, {Key: "ef", Clef: "bass"}}, resp.CachedKeys)
}

func TestService_CachedKeys_UnknownSong(t *testing.T) {
	ts := setupCatalogServiceTestSuite(t, false)
	ctx := context.Background()

	ts.repo.On("DefaultKey", ctx, "Nope").Return("c", "treble", nil).Once()
	ts.repo.On("FindByTitle", ctx, "Nope").Return(nil, common.ErrNotFound.WithMessage("Song not found")).Once()

	_, err := ts.service.CachedKeys(ctx, "Nope")
	require.Error(t, err)
	assert.Equal(t, "Song not found: Nope", err.Error())
}

func TestService_RefreshVersion(t *testing.T) {
	ts := setupCatalogServiceTestSuite(t, false)
	ctx := context.Background()

	assert.Equal(t, "", ts.service.Version())
	ts.repo.On("Fingerprint", ctx).Return("abc123", nil).Once()

	v, err := ts.service.RefreshVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc123", v)
	assert.Equal(t, "abc123", ts.service.Version())
}

func TestService_ReindexSearch_Batches(t *testing.T) {
	ts := setupCatalogServiceTestSuite(t, true)
	ctx := context.Background()

	batch1 := []Song{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}
	batch2 := []Song{{ID: 3, Title: "C"}}
	ts.repo.On("FindAllForSync", ctx, 0, 2).Return(batch1, nil).Once()
	ts.repo.On("FindAllForSync", ctx, 2, 2).Return(batch2, nil).Once()
	ts.index.On("IndexSongs", ctx, batch1).Return(IndexResult{Indexed: 2}, nil).Once()
	ts.index.On("IndexSongs", ctx, batch2).Return(IndexResult{Failed: 1}, nil).Once()

	res, err := ts.service.ReindexSearch(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, IndexResult{Indexed: 2, Failed: 1}, res)
	ts.repo.AssertExpectations(t)
	ts.index.AssertExpectations(t)
}

func TestService_ReindexSearch_NoIndex(t *testing.T) {
	ts := setupCatalogServiceTestSuite(t, false)
	res, err := ts.service.ReindexSearch(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, IndexResult{}, res)
	ts.repo.AssertNotCalled(t, "FindAllForSync", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Stats(t *testing.T) {
	ts := setupCatalogServiceTestSuite(t, false)
	ctx := context.Background()
	ts.repo.On("Count", ctx).Return(int64(3), nil)
	ts.repo.On("CountVariations", ctx).Return(int64(5), nil)

	stats, err := ts.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalSongs: 3, TotalVariations: 5}, stats)
}
