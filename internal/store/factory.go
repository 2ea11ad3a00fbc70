package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/cyclone-relay/internal/config"
)

// Open selects a backend from configuration:
//
//	STATE_DRIVER: fs|s3|memory (default fs)
//	STATE_PATH: file path when driver=fs
//	STATE_S3_BUCKET, STATE_S3_KEY, STATE_S3_REGION, STATE_S3_ENDPOINT,
//	STATE_S3_ACCESS_KEY_ID, STATE_S3_SECRET_ACCESS_KEY: when driver=s3
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	var (
		backend Backend
		err     error
	)
	switch Driver(cfg.StateDriver) {
	case DriverFilesystem, "":
		backend, err = NewFile(cfg.StatePath)
	case DriverS3:
		backend, err = OpenS3(ctx, S3Config{
			Bucket:          cfg.StateS3Bucket,
			Key:             cfg.StateS3Key,
			Region:          cfg.StateS3Region,
			Endpoint:        cfg.StateS3Endpoint,
			AccessKeyID:     cfg.StateS3AccessKeyID,
			SecretAccessKey: cfg.StateS3SecretAccessKey,
		})
	case DriverMemory:
		backend = NewMemory()
	default:
		return nil, fmt.Errorf("unknown state driver %s", cfg.StateDriver)
	}
	if err != nil {
		return nil, err
	}
	return New(backend, logger), nil
}
