// File: internal/firebase/service.go
package firebase

import (
	"context"
	"fmt"
	"path/filepath"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"jazz_picker_backend/internal/config"
)

// Service owns the Firebase Admin SDK app and the clients derived from it.
type Service struct {
	app       *firebase.App
	firestore *firestore.Client
	logger    *zap.Logger
}

// NewService initializes the Firebase Admin SDK from the service account key in cfg.
func NewService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	if err := cfg.RequireFirebase(); err != nil {
		logger.Error("Firebase service account key is not usable", zap.Error(err))
		return nil, err
	}

	cleanPath := filepath.Clean(cfg.FirebaseServiceAccountKeyPath)
	opt := option.WithCredentialsFile(cleanPath)

	var conf *firebase.Config
	if cfg.FirebaseProjectID != "" || cfg.FirebaseStorageBucket != "" {
		conf = &firebase.Config{ProjectID: cfg.FirebaseProjectID, StorageBucket: cfg.FirebaseStorageBucket}
	}
	// A nil config lets the SDK infer the project from the credentials.
	app, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err), zap.String("keyPath", cleanPath))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized successfully.")
	return &Service{app: app, logger: logger}, nil
}

// Firestore returns the shared Firestore client, creating it on first use.
func (s *Service) Firestore(ctx context.Context) (*firestore.Client, error) {
	if s.firestore != nil {
		return s.firestore, nil
	}
	client, err := s.app.Firestore(ctx)
	if err != nil {
		s.logger.Error("Failed to get Firestore client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firestore client: %w", err)
	}
	s.firestore = client
	return client, nil
}

// Bucket returns a handle to the named Storage bucket.
func (s *Service) Bucket(ctx context.Context, name string) (*gcs.BucketHandle, error) {
	client, err := s.app.Storage(ctx)
	if err != nil {
		s.logger.Error("Failed to get Firebase Storage client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firebase Storage client: %w", err)
	}
	bucket, err := client.Bucket(name)
	if err != nil {
		return nil, fmt.Errorf("error opening bucket %s: %w", name, err)
	}
	return bucket, nil
}

// Close releases the Firestore client if one was opened.
func (s *Service) Close() {
	if s.firestore == nil {
		return
	}
	if err := s.firestore.Close(); err != nil {
		s.logger.Warn("Error closing Firestore client", zap.Error(err))
		return
	}
	s.logger.Info("Firestore client closed")
}
