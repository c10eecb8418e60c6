package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskExportRender renders one queued export job.
	TaskExportRender = "export:render"
	// TaskReportsCacheWarm preloads recent saved reports into the cache.
	TaskReportsCacheWarm = "reports:cache-warm"
)

// ExportRenderTimeout bounds one render attempt. It doubles as the export job lease.
const ExportRenderTimeout = 10 * time.Minute

// ExportRenderPayload identifies the export job to render.
type ExportRenderPayload struct {
	JobID string `json:"job_id"`
}

// NewExportRenderTask constructs an Asynq task. The job id doubles as the task id so a
// job is never queued twice.
func NewExportRenderTask(id uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(ExportRenderPayload{JobID: id.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExportRender, data, asynq.TaskID(id.String()), asynq.MaxRetry(3), asynq.Timeout(ExportRenderTimeout), asynq.Queue(QueueDefault)), nil
}

// CacheWarmPayload bounds how many saved reports per type are warmed.
type CacheWarmPayload struct {
	Limit int `json:"limit"`
}

// NewCacheWarmTask constructs the cache warm task.
func NewCacheWarmTask(limit int) (*asynq.Task, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("jobs: cache warm limit must be positive")
	}
	data, err := json.Marshal(CacheWarmPayload{Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsCacheWarm, data), nil
}
