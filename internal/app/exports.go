package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nhfoods/ledgerdesk/internal/exports"
	"github.com/nhfoods/ledgerdesk/internal/platform/db"
	"github.com/nhfoods/ledgerdesk/internal/storage"
	"github.com/nhfoods/ledgerdesk/jobs"
)

// NewExports connects the export job table and the object bucket and builds the export
// service on top of s. The returned func closes the database pool.
func NewExports(ctx context.Context, cfg *Config, logger *slog.Logger, s *Services, queue exports.Queue) (*exports.Service, func(), error) {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConn)
	if err != nil {
		return nil, nil, fmt.Errorf("app: connect postgres: %w", err)
	}
	repo := exports.NewRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("app: migrate export jobs: %w", err)
	}
	bucket, err := storage.New(cfg.Storage())
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("app: object storage: %w", err)
	}
	if err := bucket.EnsureBucket(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("app: ensure bucket: %w", err)
	}
	svc := exports.NewService(exports.Config{
		Store:      repo,
		Queue:      queue,
		Builder:    exports.Documents{Reports: s.Reports, Ledgers: s.Ledgers, Company: s.Company},
		Exporter:   s.Exporter,
		Files:      bucket,
		LinkExpiry: cfg.ExportLinkTTL,
		Lease:      jobs.ExportRenderTimeout,
		Logger:     logger,
	})
	return svc, pool.Close, nil
}
