// Package app builds the infrastructure shared by the server and worker
// binaries from configuration.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feedr-app/backend/config"
	"github.com/feedr-app/backend/internal/store"
	"github.com/feedr-app/backend/pkg/database"
	"github.com/feedr-app/backend/pkg/redis"
	"github.com/feedr-app/backend/pkg/storage"
)

// OpenStore opens the configured document store. close releases its resources.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (docs *store.Documents, close func(), err error) {
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("document store", zap.String("driver", "postgres"))
		return store.New(store.NewPostgresStore(pool), logger), pool.Close, nil
	default:
		logger.Info("document store", zap.String("driver", "file"), zap.String("path", cfg.Store.DataPath))
		return store.New(store.NewFileStore(cfg.Store.DataPath), logger), func() {}, nil
	}
}

// ConnectRedis returns nil when no Redis address is configured.
func ConnectRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		logger.Info("redis disabled; sessions are not revocable, embeds are not cached, live updates stay in-process")
		return nil, nil
	}
	return redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
}

// NewSnapshotUploader returns nil when snapshots are disabled.
func NewSnapshotUploader(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Uploader, error) {
	switch cfg.Snapshot.Backend {
	case "s3":
		return storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Bucket:          cfg.AWS.SnapshotBucket,
			Endpoint:        cfg.AWS.S3Endpoint,
		}, logger)
	case "minio":
		return storage.NewMinIO(ctx, storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
			Region:    cfg.MinIO.Region,
		}, logger)
	default:
		return nil, nil
	}
}
