package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	instrumentcache "instrumentsync/internal/cache/instrument"
	"instrumentsync/internal/gateway/config"
	artifactrepo "instrumentsync/internal/gateway/repository/artifact"
	instrumentrepo "instrumentsync/internal/gateway/repository/instrument"
	"instrumentsync/internal/gateway/service/submission"
)

// Stores holds the two explicitly constructed store clients. Nothing here is
// process-global; callers own the lifecycle through Close.
type Stores struct {
	Records *instrumentcache.CachedStore
	Objects artifactrepo.Store
	db      *sql.DB
}

func (s *Stores) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func InitStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	stores := &Stores{}

	var origin instrumentrepo.Store
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		db, err := instrumentrepo.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open record store: %w", err)
		}
		pg, err := instrumentrepo.NewPostgresStore(db, cfg.RecordTable)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		stores.db = db
		origin = pg
		logger.Info("record store: postgres", zap.String("table", cfg.RecordTable))
	} else {
		origin = instrumentrepo.NewMemoryStore()
		logger.Warn("record store: in-memory (DATABASE_URL not set)")
	}
	stores.Records = instrumentcache.NewCachedStore(origin, instrumentcache.DefaultCacheConfig())

	objects, err := chooseArtifactStore(cfg, logger)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}
	stores.Objects = objects
	return stores, nil
}

func chooseArtifactStore(cfg *config.Config, logger *zap.Logger) (artifactrepo.Store, error) {
	if !cfg.Artifact.CanUseS3() {
		if cfg.Artifact.Enabled {
			logger.Warn("artifact store: using in-memory fallback (s3 config incomplete)")
		} else {
			logger.Warn("artifact store: in-memory")
		}
		return artifactrepo.NewMemoryStore(), nil
	}
	s3Cfg := artifactrepo.S3Config{
		Endpoint:  cfg.Artifact.Endpoint,
		Region:    cfg.Artifact.Region,
		AccessKey: cfg.Artifact.AccessKey,
		SecretKey: cfg.Artifact.SecretKey,
		Bucket:    cfg.Artifact.Bucket,
		UseSSL:    cfg.Artifact.UseSSL,
	}
	s3Store, err := artifactrepo.NewS3Store(s3Cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact s3 store: %w", err)
	}
	logger.Info("artifact store: s3", zap.String("bucket", s3Cfg.Bucket), zap.String("endpoint", s3Cfg.Endpoint))
	return s3Store, nil
}

// NewPipeline wires the submission pipeline onto the given stores.
func NewPipeline(cfg *config.Config, stores *Stores, logger *zap.Logger) (*submission.Pipeline, error) {
	return submission.New(stores.Records, stores.Objects,
		submission.WithLogger(logger.Named("submission")),
		submission.WithUploadTimeout(cfg.UploadTimeout),
		submission.WithStrictIdentifiers(cfg.StrictIdentifiers),
	)
}
