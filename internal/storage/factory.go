package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/user-directory/internal/config"
)

// New builds the attachment store selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*Storage, error) {
	var backend ObjectStorage
	switch cfg.Backend {
	case config.StorageBackendMinio:
		client, err := NewMinioClient(cfg.Minio, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		backend = client
	case config.StorageBackendGCS:
		client, err := NewGCSClient(ctx, cfg.GCS, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		backend = client
	default:
		logger.Warn("STORAGE_BACKEND is none; profile uploads will be rejected")
		return NewStorage(nil, cfg.PublicBaseURL), nil
	}

	store := NewStorage(backend, cfg.PublicBaseURL)
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Warn("unable to ensure attachment bucket", zap.String("bucket", cfg.Bucket), zap.Error(err))
	} else {
		logger.Info("attachment storage ready", zap.String("backend", cfg.Backend), zap.String("bucket", cfg.Bucket))
	}
	return store, nil
}
