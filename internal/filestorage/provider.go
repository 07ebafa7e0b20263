// File: internal/filestorage/provider.go
package filestorage

import (
	"context"

	"go.uber.org/zap"

	"jazz_picker_backend/internal/config"
	"jazz_picker_backend/internal/firebase"
)

// NewObjectStore picks the bucket store when a Firebase Storage bucket is configured and the
// local store under GENERATED_DIR otherwise.
func NewObjectStore(ctx context.Context, cfg *config.Config, fb *firebase.Service, logger *zap.Logger) (ObjectStore, error) {
	if cfg.UsesBucket() && fb != nil {
		bucket, err := fb.Bucket(ctx, cfg.FirebaseStorageBucket)
		if err != nil {
			return nil, err
		}
		return NewBucketStore(bucket, cfg.FirebaseStorageBucket, logger.Named("BucketStore")), nil
	}
	return NewLocalStore(cfg.GeneratedDir, "", logger.Named("LocalStore"))
}
