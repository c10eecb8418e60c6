package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	accountshttp "github.com/nhfoods/ledgerdesk/internal/accounts/http"
	"github.com/nhfoods/ledgerdesk/internal/app"
	exportshttp "github.com/nhfoods/ledgerdesk/internal/exports/http"
	ledgerhttp "github.com/nhfoods/ledgerdesk/internal/ledger/http"
	"github.com/nhfoods/ledgerdesk/internal/observability"
	reportshttp "github.com/nhfoods/ledgerdesk/internal/reports/http"
	"github.com/nhfoods/ledgerdesk/jobs"
	"github.com/nhfoods/ledgerdesk/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	services, err := app.NewServices(ctx, cfg, logger, app.ServiceOptions{Recorder: metrics})
	if err != nil {
		logger.Error("init services", slog.Any("error", err))
		os.Exit(1)
	}
	defer services.Close()

	redisOpts := cfg.Queue()
	queue := jobs.NewClient(redisOpts)
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	exportService, closeExports, err := app.NewExports(ctx, cfg, logger, services, queue)
	if err != nil {
		logger.Error("init exports", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeExports()

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Metrics:         metrics,
		AccountsHandler: accountshttp.NewHandler(logger, services.Accounts),
		LedgerHandler:   ledgerhttp.NewHandler(logger, services.Ledgers, services.Exporter, services.Company),
		ReportsHandler:  reportshttp.NewHandler(logger, services.Reports, services.Exporter, services.Company),
		ExportsHandler:  exportshttp.NewHandler(logger, exportService),
		JobHandler:      jobs.NewHandler(inspector, logger),
		PDFHandler:      report.NewHandler(services.Gotenberg, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
