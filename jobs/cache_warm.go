package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Warmer preloads saved reports; *reports.Service implements it.
type Warmer interface {
	Warm(ctx context.Context, limit int) (int, error)
}

// CacheWarmJob keeps recent saved reports in the cache.
type CacheWarmJob struct {
	Reports  Warmer
	Logger   *slog.Logger
	Observer Observer
	Timeout  time.Duration
}

// NewCacheWarmJob wires dependencies for the warm handler.
func NewCacheWarmJob(reports Warmer, logger *slog.Logger, observer Observer) *CacheWarmJob {
	return &CacheWarmJob{Reports: reports, Logger: logger, Observer: observer, Timeout: 2 * time.Minute}
}

// Handle processes cache warm tasks.
func (j *CacheWarmJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Reports == nil {
		return errors.New("cache warm: handler not configured")
	}
	var payload CacheWarmPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Limit <= 0 {
		payload.Limit = 10
	}

	defer track(j.Observer, TaskReportsCacheWarm, &err)
	logger := jobLogger(j.Logger, TaskReportsCacheWarm)
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	start := time.Now()
	warmed, err := j.Reports.Warm(ctx, payload.Limit)
	if err != nil {
		logger.Error("warm report cache", slog.Int("warmed", warmed), slog.Any("error", err))
		return err
	}
	logger.Info("report cache warmed", slog.Int("reports", warmed), slog.Duration("duration", time.Since(start)))
	return nil
}
