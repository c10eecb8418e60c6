package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nhfoods/ledgerdesk/internal/accounts"
	"github.com/nhfoods/ledgerdesk/internal/backend"
	"github.com/nhfoods/ledgerdesk/internal/ledger"
	"github.com/nhfoods/ledgerdesk/internal/platform/cache"
	"github.com/nhfoods/ledgerdesk/internal/reports"
	"github.com/nhfoods/ledgerdesk/internal/reports/export"
	"github.com/nhfoods/ledgerdesk/report"
)

// Services holds the domain services shared by the server, the worker and the CLI.
type Services struct {
	Backend   *backend.Client
	Accounts  *accounts.Service
	Ledgers   *ledger.Service
	Reports   *reports.Service
	Exporter  *export.Exporter
	Company   export.Company
	Redis     *redis.Client
	Gotenberg *report.Client
}

// ServiceOptions tunes NewServices.
type ServiceOptions struct {
	// Recorder observes exports, normally the Prometheus metrics.
	Recorder export.Recorder
	// SkipRedis leaves the report cache disabled.
	SkipRedis bool
	Clock     func() time.Time
}

// NewServices wires the backend client and the services built on it. Redis is optional:
// when it cannot be reached the report cache is disabled with a warning.
func NewServices(ctx context.Context, cfg *Config, logger *slog.Logger, opts ServiceOptions) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := backend.NewClient(backend.Config{
		BaseURL:    cfg.BackendURL,
		Token:      cfg.BackendToken,
		Timeout:    cfg.BackendTimeout,
		FetchLimit: cfg.LedgerFetchLimit,
	}, logger)
	if err != nil {
		return nil, err
	}

	s := &Services{Backend: client, Company: cfg.Company()}
	if !opts.SkipRedis {
		rc, err := cache.New(ctx, cfg.Redis())
		if err != nil {
			logger.Warn("report cache disabled", slog.Any("error", err))
		} else {
			s.Redis = rc
		}
	}

	var renderer export.Renderer
	if cfg.PDFEngine == PDFEngineGotenberg {
		gc, err := report.NewClient(cfg.GotenbergURL, report.Options{})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("app: gotenberg: %w", err)
		}
		s.Gotenberg, renderer = gc, gc
	}

	loc := cfg.Location()
	s.Accounts = accounts.NewService(client, logger)
	s.Ledgers = ledger.NewService(client, logger, ledger.ServiceConfig{Location: loc, Clock: opts.Clock})
	s.Reports = reports.NewService(client, client, reports.NewCache(s.Redis, cfg.ReportCacheTTL), logger, reports.ServiceConfig{Location: loc, Clock: opts.Clock})
	s.Exporter = export.NewExporter(logger, export.Options{PDFRenderer: renderer, Recorder: opts.Recorder, Clock: opts.Clock})
	return s, nil
}

// Close releases the Redis client.
func (s *Services) Close() {
	if s != nil && s.Redis != nil {
		_ = s.Redis.Close()
	}
}
