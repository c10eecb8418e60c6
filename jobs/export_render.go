package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/nhfoods/ledgerdesk/internal/exports"
)

// ExportRunner renders a stored export job; *exports.Service implements it.
type ExportRunner interface {
	Run(ctx context.Context, id uuid.UUID) error
}

// ExportRenderJob processes export jobs coming from the queue.
type ExportRenderJob struct {
	Runner   ExportRunner
	Logger   *slog.Logger
	Observer Observer
}

// NewExportRenderJob wires dependencies for the render handler.
func NewExportRenderJob(runner ExportRunner, logger *slog.Logger, observer Observer) *ExportRenderJob {
	return &ExportRenderJob{Runner: runner, Logger: logger, Observer: observer}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *ExportRenderJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Runner == nil {
		return errors.New("export render: handler not configured")
	}
	var payload ExportRenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	id, err := uuid.Parse(payload.JobID)
	if err != nil {
		return asynq.SkipRetry
	}

	defer track(j.Observer, TaskExportRender, &err)
	logger := jobLogger(j.Logger, TaskExportRender).With(slog.String("job_id", id.String()))
	if err = j.Runner.Run(ctx, id); err != nil {
		if errors.Is(err, exports.ErrNotFound) {
			logger.Warn("export job missing")
			return asynq.SkipRetry
		}
		var busy *exports.BusyError
		if errors.As(err, &busy) {
			logger.Info("export job busy", slog.Duration("retry_after", busy.RetryAfter))
			return err
		}
		logger.Error("render export", slog.Any("error", err))
		return err
	}
	return nil
}
