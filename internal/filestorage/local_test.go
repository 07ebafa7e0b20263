package filestorage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupLocalStore(t *testing.T) (*LocalStore, string) {
	root := filepath.Join(t.TempDir(), "objects")
	store, err := NewLocalStore(root, "", zap.NewNop())
	require.NoError(t, err, "Failed to create LocalStore")
	require.NotNil(t, store)
	return store, root
}

func TestNewLocalStore_EmptyPath(t *testing.T) {
	_, err := NewLocalStore("", "", zap.NewNop())
	assert.EqualError(t, err, "storage path cannot be empty")
}

func TestLocalStore_PutOpenAttrs(t *testing.T) {
	store, root := setupLocalStore(t)
	ctx := context.Background()

	err := store.Put(ctx, "generated/blue-bossa-c-treble.pdf", strings.NewReader("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "generated", "blue-bossa-c-treble.pdf"))
	require.NoError(t, err, "object should be written under the root")

	exists, err := store.Exists(ctx, "generated/blue-bossa-c-treble.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	r, err := store.Open(ctx, "generated/blue-bossa-c-treble.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	r.Close()
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	attrs, err := store.Attrs(ctx, "generated/blue-bossa-c-treble.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(8), attrs.Size)
	assert.Equal(t, attrs.MD5, attrs.ETag)
	assert.Len(t, attrs.MD5, 32)
	assert.Equal(t, "application/pdf", attrs.ContentType)
}

func TestLocalStore_MissingObject(t *testing.T) {
	store, _ := setupLocalStore(t)
	ctx := context.Background()

	exists, err := store.Exists(ctx, "generated/nope.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Open(ctx, "generated/nope.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = store.Attrs(ctx, "generated/nope.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	assert.NoError(t, store.Delete(ctx, "generated/nope.pdf"), "deleting a missing object is not an error")
}

func TestLocalStore_ListByPrefix(t *testing.T) {
	store, _ := setupLocalStore(t)
	ctx := context.Background()

	for _, key := range []string{
		"generated/blue-bossa-c-treble.pdf",
		"generated/blue-bossa-ef-bass.pdf",
		"generated/blue-moon-c-treble.pdf",
		"catalog.db",
	} {
		require.NoError(t, store.Put(ctx, key, strings.NewReader(key), ""))
	}

	objects, err := store.List(ctx, "generated/blue-bossa-")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "generated/blue-bossa-c-treble.pdf", objects[0].Key)
	assert.Equal(t, "generated/blue-bossa-ef-bass.pdf", objects[1].Key)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestLocalStore_URL(t *testing.T) {
	store, _ := setupLocalStore(t)
	u, err := store.URL(context.Background(), "generated/x.pdf", 0)
	require.NoError(t, err)
	assert.Equal(t, "/generated/x.pdf", u)

	withBase, err := NewLocalStore(t.TempDir(), "http://localhost:8080/", zap.NewNop())
	require.NoError(t, err)
	u, err = withBase.URL(context.Background(), "generated/x.pdf", 0)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/generated/x.pdf", u)
}

func TestLocalStore_Delete(t *testing.T) {
	store, root := setupLocalStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "generated/a.pdf", strings.NewReader("a"), ""))

	require.NoError(t, store.Delete(ctx, "generated/a.pdf"))
	_, err := os.Stat(filepath.Join(root, "generated", "a.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStore_PathTraversal(t *testing.T) {
	store, root := setupLocalStore(t)
	ctx := context.Background()

	outside := filepath.Join(filepath.Dir(root), "dummy_outside.txt")
	require.NoError(t, os.WriteFile(outside, []byte("dummy"), 0o644))

	err := store.Delete(ctx, "../dummy_outside.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid object key")

	err = store.Put(ctx, "generated/../../escape.pdf", strings.NewReader("x"), "")
	require.Error(t, err)

	_, statErr := os.Stat(outside)
	assert.NoError(t, statErr, "External dummy file should still exist.")
}
