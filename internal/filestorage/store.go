// File: internal/filestorage/store.go
package filestorage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned when a key has no object.
var ErrObjectNotFound = errors.New("object not found")

// ObjectAttrs describes a stored object.
type ObjectAttrs struct {
	Key         string
	Size        int64
	ETag        string
	MD5         string // hex encoded, empty when the backend does not report it
	ContentType string
	Updated     time.Time
}

// ObjectStore holds generated PDFs and catalog snapshots.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Attrs(ctx context.Context, key string) (*ObjectAttrs, error)
	List(ctx context.Context, prefix string) ([]ObjectAttrs, error)
	// URL returns a link a client can download key from, valid for at least ttl.
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}
