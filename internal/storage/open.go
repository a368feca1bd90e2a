package storage

import (
	"context"
	"fmt"

	"github.com/smartsum/backend/internal/config"
)

// Open returns the artifact store for reports and the one for uploaded
// media, on the backend selected by STORAGE_BACKEND.
func Open(ctx context.Context, cfg config.StorageConfig) (outputs ArtifactStore, uploads ArtifactStore, err error) {
	switch cfg.Backend {
	case "s3":
		if cfg.AWSBucket == "" {
			return nil, nil, fmt.Errorf("AWS_BUCKET is required for the s3 storage backend")
		}
		client, err := NewS3Client(ctx, S3Params{
			Region:    cfg.AWSRegion,
			Endpoint:  cfg.AWSEndpoint,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return NewS3Store(client, cfg.AWSBucket, cfg.OutputDir), NewS3Store(client, cfg.AWSBucket, cfg.UploadDir), nil
	case "file", "":
		out, err := NewFileStore(cfg.OutputDir)
		if err != nil {
			return nil, nil, err
		}
		up, err := NewFileStore(cfg.UploadDir)
		if err != nil {
			return nil, nil, err
		}
		return out, up, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Backend)
	}
}
