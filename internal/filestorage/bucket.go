// File: internal/filestorage/bucket.go
package filestorage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
)

// BucketStore keeps objects in a Firebase Storage (GCS) bucket.
type BucketStore struct {
	bucket *storage.BucketHandle
	name   string
	logger *zap.Logger
}

var _ ObjectStore = (*BucketStore)(nil)

func NewBucketStore(bucket *storage.BucketHandle, name string, logger *zap.Logger) *BucketStore {
	logger.Info("Bucket object store initialized", zap.String("bucket", name))
	return &BucketStore{bucket: bucket, name: name, logger: logger}
}

func (s *BucketStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize upload of %s: %w", key, err)
	}
	s.logger.Debug("Object uploaded", zap.String("bucket", s.name), zap.String("key", key))
	return nil
}

func (s *BucketStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.bucket.Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return true, nil
}

func (s *BucketStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	return r, nil
}

func (s *BucketStore) Attrs(ctx context.Context, key string) (*ObjectAttrs, error) {
	attrs, err := s.bucket.Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return toObjectAttrs(attrs), nil
}

func (s *BucketStore) List(ctx context.Context, prefix string) ([]ObjectAttrs, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	var out []ObjectAttrs
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %q: %w", prefix, err)
		}
		out = append(out, *toObjectAttrs(attrs))
	}
	return out, nil
}

// URL returns a V4 signed GET URL. Signing uses the credentials the bucket client was
// created with.
func (s *BucketStore) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.bucket.SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign URL for %s: %w", key, err)
	}
	return u, nil
}

func (s *BucketStore) Delete(ctx context.Context, key string) error {
	err := s.bucket.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func toObjectAttrs(a *storage.ObjectAttrs) *ObjectAttrs {
	out := &ObjectAttrs{
		Key:         a.Name,
		Size:        a.Size,
		ETag:        a.Etag,
		ContentType: a.ContentType,
		Updated:     a.Updated,
	}
	if len(a.MD5) > 0 {
		out.MD5 = hex.EncodeToString(a.MD5)
	}
	return out
}
