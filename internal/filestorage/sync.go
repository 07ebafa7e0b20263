// File: internal/filestorage/sync.go
package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// SyncResult reports what SyncFile did.
type SyncResult struct {
	Downloaded bool
	// Missing is set when the store has no object for the key; the local file is untouched.
	Missing bool
	ETag    string
}

// Checksum returns the value local files are compared against: the object md5 when the
// backend reports one, otherwise its unquoted etag.
func (a ObjectAttrs) Checksum() string {
	if a.MD5 != "" {
		return a.MD5
	}
	return strings.Trim(a.ETag, `"`)
}

// SyncFile makes localPath a copy of the object at key. It downloads only when the local file
// is missing or its md5 differs from the object's checksum.
func SyncFile(ctx context.Context, store ObjectStore, key, localPath string, logger *zap.Logger) (SyncResult, error) {
	attrs, err := store.Attrs(ctx, key)
	if errors.Is(err, ErrObjectNotFound) {
		logger.Warn("Object not found in store, keeping local copy", zap.String("key", key), zap.String("path", localPath))
		return SyncResult{Missing: true}, nil
	}
	if err != nil {
		return SyncResult{}, err
	}

	remote := attrs.Checksum()
	if local, err := FileMD5(localPath); err == nil && local == remote {
		logger.Debug("Local copy is current", zap.String("key", key), zap.String("md5", local))
		return SyncResult{ETag: remote}, nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return SyncResult{}, fmt.Errorf("failed to hash %s: %w", localPath, err)
	}

	if err := Download(ctx, store, key, localPath); err != nil {
		return SyncResult{}, err
	}
	logger.Info("Downloaded object",
		zap.String("key", key),
		zap.String("path", localPath),
		zap.Int64("size", attrs.Size),
	)
	return SyncResult{Downloaded: true, ETag: remote}, nil
}

// Download copies the object at key to localPath, replacing it atomically.
func Download(ctx context.Context, store ObjectStore, key, localPath string) error {
	r, err := store.Open(ctx, key)
	if err != nil {
		return err
	}
	defer r.Close()

	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to download %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), localPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", localPath, err)
	}
	return nil
}
