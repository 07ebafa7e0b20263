package catalogclient

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"jazz_picker_backend/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	result *CatalogResult
	err    error
	etags  []string
}

func (f *fakeFetcher) Catalog(ctx context.Context, etag string) (*CatalogResult, error) {
	f.etags = append(f.etags, etag)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func catalogResult(etag string, songs ...catalog.SongSummary) *CatalogResult {
	return &CatalogResult{
		Catalog: &catalog.CatalogResponse{Songs: songs, Total: int64(len(songs))},
		ETag:    etag,
	}
}

var storeSongs = []catalog.SongSummary{
	{Title: "So What", DefaultKey: "d", Composer: "Miles Davis"},
	{Title: "all the things you are", DefaultKey: "af", Composer: "Jerome Kern"},
	{Title: "Blue in Green", DefaultKey: "d", Composer: "Miles Davis"},
	{Title: "Body and Soul", DefaultKey: "df"},
}

func TestStore_LoadSortsAndPersists(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(&fakeFetcher{result: catalogResult(`"v1"`, storeSongs...)}, dir, zap.NewNop())

	require.NoError(t, store.Load(context.Background()))

	var titles []string
	for _, s := range store.Songs() {
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{"all the things you are", "Blue in Green", "Body and Soul", "So What"}, titles)
	assert.Equal(t, `"v1"`, store.ETag())
	assert.FileExists(t, filepath.Join(dir, catalogCacheFile))
}

func TestStore_LoadFallsBackToCache(t *testing.T) {
	dir := t.TempDir()
	first := NewStore(&fakeFetcher{result: catalogResult(`"v1"`, storeSongs...)}, dir, zap.NewNop())
	require.NoError(t, first.Load(context.Background()))

	offline := &fakeFetcher{err: errors.New("connection refused")}
	second := NewStore(offline, dir, zap.NewNop())
	require.NoError(t, second.Load(context.Background()))

	assert.Len(t, second.Songs(), len(storeSongs))
	require.Len(t, offline.etags, 1)
	assert.Equal(t, `"v1"`, offline.etags[0], "refresh should be conditional on the cached etag")
}

func TestStore_LoadWithoutCacheReturnsError(t *testing.T) {
	store := NewStore(&fakeFetcher{err: errors.New("connection refused")}, t.TempDir(), zap.NewNop())

	err := store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, store.Songs())
}

func TestStore_RefreshNotModifiedKeepsSongs(t *testing.T) {
	fetcher := &fakeFetcher{result: catalogResult(`"v1"`, storeSongs...)}
	store := NewStore(fetcher, "", zap.NewNop())
	require.NoError(t, store.Refresh(context.Background()))

	fetcher.result = &CatalogResult{NotModified: true}
	require.NoError(t, store.Refresh(context.Background()))

	assert.Len(t, store.Songs(), len(storeSongs))
	assert.Equal(t, []string{"", `"v1"`}, fetcher.etags)
}

func TestStore_Queries(t *testing.T) {
	store := NewStore(&fakeFetcher{result: catalogResult(`"v1"`, storeSongs...)}, "", zap.NewNop())
	require.NoError(t, store.Load(context.Background()))

	assert.Len(t, store.Search(""), len(storeSongs))
	assert.Len(t, store.Search("  MILES "), 2)
	assert.Len(t, store.Search("body"), 1)
	assert.Empty(t, store.Search("coltrane"))

	assert.Equal(t, []string{"Jerome Kern", "Miles Davis"}, store.Composers())

	song, ok := store.BySlug("All-The-Things-You-Are")
	require.True(t, ok)
	assert.Equal(t, "all the things you are", song.Title)
	_, ok = store.BySlug("giant-steps")
	assert.False(t, ok)

	picked, ok := store.Random()
	require.True(t, ok)
	assert.Contains(t, store.Songs(), picked)
}

func TestStore_RandomOnEmptyCatalog(t *testing.T) {
	store := NewStore(&fakeFetcher{}, "", zap.NewNop())
	_, ok := store.Random()
	assert.False(t, ok)
}
