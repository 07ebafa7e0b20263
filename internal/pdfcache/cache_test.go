package pdfcache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"jazz_picker_backend/internal/music"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupCacheTestSuite(t *testing.T) (*Cache, string) {
	dir := t.TempDir()
	c, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	return c, dir
}

var blueBossa = Variant{SongTitle: "Blue Bossa", ConcertKey: "cm", Transposition: music.TranspositionBb, Clef: music.ClefTreble}

func TestCache_PutAndLookup(t *testing.T) {
	c, _ := setupCacheTestSuite(t)

	assert.Equal(t, Miss, c.Lookup(blueBossa, "").Status)

	crop := &CropBounds{Top: 10, Bottom: 20}
	entry, err := c.Put(blueBossa, []byte("%PDF-1.4"), `"abc"`, crop, "v1")
	require.NoError(t, err)
	assert.Equal(t, int64(8), entry.FileSize)

	res := c.Lookup(blueBossa, "v1")
	assert.Equal(t, Hit, res.Status)
	assert.Equal(t, []byte("%PDF-1.4"), res.Data)
	assert.Equal(t, crop, res.Crop)
	assert.True(t, c.IsCached(blueBossa))
	assert.Equal(t, `"abc"`, c.ETag(blueBossa))
	assert.Equal(t, 1, c.Count())
	assert.Equal(t, "8.0 B", c.FormattedSize())
}

func TestCache_LookupStaleOnIncludeVersionChange(t *testing.T) {
	c, _ := setupCacheTestSuite(t)
	_, err := c.Put(blueBossa, []byte("pdf"), "", nil, "v1")
	require.NoError(t, err)

	assert.Equal(t, Stale, c.Lookup(blueBossa, "v2").Status)
	assert.Equal(t, Hit, c.Lookup(blueBossa, "").Status)

	ok, err := c.UpdateETag(blueBossa, "new", "v2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Hit, c.Lookup(blueBossa, "v2").Status)
	assert.Equal(t, "new", c.ETag(blueBossa))

	ok, err = c.UpdateETag(Variant{SongTitle: "Nope"}, "x", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_MissingFileDropsEntry(t *testing.T) {
	c, dir := setupCacheTestSuite(t)
	entry, err := c.Put(blueBossa, []byte("pdf"), "", nil, "")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, entry.FilePath)))

	assert.Equal(t, Miss, c.Lookup(blueBossa, "").Status)
	assert.False(t, c.IsCached(blueBossa))
	assert.Equal(t, 0, c.Count())
}

func TestCache_ManifestSurvivesReopen(t *testing.T) {
	c, dir := setupCacheTestSuite(t)
	_, err := c.Put(blueBossa, []byte("one"), "e1", nil, "")
	require.NoError(t, err)
	other := blueBossa
	other.OctaveOffset = 1
	_, err = c.Put(other, []byte("three"), "e2", nil, "")
	require.NoError(t, err)

	reopened, err := Open(dir, zap.NewNop())
	require.NoError(t, err)

	if diff := cmp.Diff(c.Entries(), reopened.Entries()); diff != "" {
		t.Errorf("entries differ after reopen (-before +after):\n%s", diff)
	}
	assert.Equal(t, int64(8), reopened.TotalSize())
}

func TestCache_CorruptManifestStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestFile), []byte("{not json"), 0o644))

	c, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, c.Count())
}

func TestCache_RemoveAndClear(t *testing.T) {
	c, dir := setupCacheTestSuite(t)
	_, err := c.Put(blueBossa, []byte("pdf"), "", nil, "")
	require.NoError(t, err)
	require.NoError(t, c.Remove(blueBossa))
	assert.False(t, c.IsCached(blueBossa))
	require.NoError(t, c.Remove(blueBossa))

	_, err = c.Put(blueBossa, []byte("pdf"), "", nil, "")
	require.NoError(t, err)
	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Count())

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, manifestFile, files[0].Name())
}

func TestCache_MarkDownloadingDedupes(t *testing.T) {
	c, _ := setupCacheTestSuite(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	claimed := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.MarkDownloading(blueBossa) {
				mu.Lock()
				claimed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, claimed)
	assert.True(t, c.IsDownloading(blueBossa))
	c.MarkDone(blueBossa)
	assert.False(t, c.IsDownloading(blueBossa))
}

func TestCache_PutKeepsFilesInsideCacheDir(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "a", "cache")
	c, err := Open(dir, zap.NewNop())
	require.NoError(t, err)

	v := Variant{SongTitle: "x", ConcertKey: "a/../../../escaped", Transposition: music.Transposition("C/.."), Clef: music.Clef("../treble")}
	entry, err := c.Put(v, []byte("pdf"), "", nil, "")
	require.NoError(t, err)

	assert.Equal(t, "x-a-escaped-C-treble-0.pdf", entry.FilePath)
	assert.FileExists(t, filepath.Join(dir, entry.FilePath))
	for _, d := range []string{parent, filepath.Join(parent, "a")} {
		files, err := os.ReadDir(d)
		require.NoError(t, err)
		for _, f := range files {
			assert.True(t, f.IsDir(), "unexpected file %s in %s", f.Name(), d)
		}
	}

	require.NoError(t, c.Remove(v))
	assert.NoFileExists(t, filepath.Join(dir, entry.FilePath))
}

func TestCache_IgnoresManifestEntriesOutsideCacheDir(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "cache")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	outside := filepath.Join(parent, "victim.pdf")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))

	manifest := `[{"songTitle":"Blue Bossa","concertKey":"cm","transposition":"Bb","clef":"treble","filePath":"../victim.pdf"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestFile), []byte(manifest), 0o644))

	c, err := Open(dir, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 0, c.Count())
	assert.Equal(t, Miss, c.Lookup(blueBossa, "").Status)
	require.NoError(t, c.Remove(blueBossa))
	assert.FileExists(t, outside)
}
