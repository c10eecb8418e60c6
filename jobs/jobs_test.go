package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/nhfoods/ledgerdesk/internal/exports"
	_ "github.com/nhfoods/ledgerdesk/testing"
)

type runner struct {
	ids []uuid.UUID
	err error
}

func (r *runner) Run(_ context.Context, id uuid.UUID) error {
	r.ids = append(r.ids, id)
	return r.err
}

type observer map[string][]bool

func (o observer) ObserveJob(task string, ok bool) { o[task] = append(o[task], ok) }

func TestExportRenderTask(t *testing.T) {
	id := uuid.New()
	task, err := NewExportRenderTask(id)
	require.NoError(t, err)
	require.Equal(t, TaskExportRender, task.Type())
	require.JSONEq(t, `{"job_id":"`+id.String()+`"}`, string(task.Payload()))
}

func TestExportRenderJobRunsJob(t *testing.T) {
	r, obs := &runner{}, observer{}
	id := uuid.New()
	task, err := NewExportRenderTask(id)
	require.NoError(t, err)

	require.NoError(t, NewExportRenderJob(r, nil, obs).Handle(context.Background(), task))
	require.Equal(t, []uuid.UUID{id}, r.ids)
	require.Equal(t, []bool{true}, obs[TaskExportRender])
}

func TestExportRenderJobSkipsBadPayload(t *testing.T) {
	r := &runner{}
	job := NewExportRenderJob(r, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskExportRender, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	err = job.Handle(context.Background(), asynq.NewTask(TaskExportRender, []byte(`{"job_id":"nope"}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Empty(t, r.ids)
}

func TestExportRenderJobRetryPolicy(t *testing.T) {
	task, err := NewExportRenderTask(uuid.New())
	require.NoError(t, err)

	missing, obs := &runner{err: exports.ErrNotFound}, observer{}
	require.ErrorIs(t, NewExportRenderJob(missing, nil, obs).Handle(context.Background(), task), asynq.SkipRetry)
	require.Equal(t, []bool{false}, obs[TaskExportRender])

	boom := errors.New("backend down")
	err = NewExportRenderJob(&runner{err: boom}, nil, nil).Handle(context.Background(), task)
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestBusyExportRetriesAfterLease(t *testing.T) {
	task, err := NewExportRenderTask(uuid.New())
	require.NoError(t, err)
	busy := &exports.BusyError{ID: uuid.New(), StartedAt: time.Now(), RetryAfter: 7 * time.Minute}

	err = NewExportRenderJob(&runner{err: busy}, nil, nil).Handle(context.Background(), task)
	require.ErrorAs(t, err, &busy)
	require.NotErrorIs(t, err, asynq.SkipRetry)
	require.Equal(t, 7*time.Minute, retryDelay(1, err, task))

	other := retryDelay(0, errors.New("backend down"), task)
	require.Less(t, other, time.Minute)
}

type warmer struct {
	limit int
	n     int
	err   error
}

func (w *warmer) Warm(_ context.Context, limit int) (int, error) {
	w.limit = limit
	return w.n, w.err
}

func TestCacheWarmJob(t *testing.T) {
	task, err := NewCacheWarmTask(25)
	require.NoError(t, err)
	w, obs := &warmer{n: 4}, observer{}

	require.NoError(t, NewCacheWarmJob(w, nil, obs).Handle(context.Background(), task))
	require.Equal(t, 25, w.limit)
	require.Equal(t, []bool{true}, obs[TaskReportsCacheWarm])

	w.err = errors.New("redis down")
	require.Error(t, NewCacheWarmJob(w, nil, obs).Handle(context.Background(), task))
	require.Equal(t, []bool{true, false}, obs[TaskReportsCacheWarm])

	_, err = NewCacheWarmTask(0)
	require.Error(t, err)
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, f.err
}

func (f *fakeEnqueuer) Close() error { return nil }

func TestClientEnqueueExportIgnoresDuplicates(t *testing.T) {
	enq := &fakeEnqueuer{err: asynq.ErrTaskIDConflict}
	c := &Client{client: enq}
	require.NoError(t, c.EnqueueExport(context.Background(), uuid.New()))
	require.Len(t, enq.tasks, 1)

	enq.err = errors.New("redis down")
	require.Error(t, c.EnqueueExport(context.Background(), uuid.New()))
}

type inspector struct {
	info *asynq.QueueInfo
	err  error
}

func (i inspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return i.info, i.err }

func TestHealthHandler(t *testing.T) {
	serve := func(insp QueueInspector) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Route("/jobs", NewHandler(insp, nil).MountRoutes)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
		return rr
	}

	rr := serve(inspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Archived: 1}})
	require.Equal(t, http.StatusOK, rr.Code)
	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, 3, body.Pending)
	require.Equal(t, 1, body.Failed)

	require.Equal(t, http.StatusServiceUnavailable, serve(inspector{err: errors.New("down")}).Code)
	require.Equal(t, http.StatusOK, serve(nil).Code)
}

func TestFailureLoggerMarksPermanentFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	task := asynq.NewTask(TaskExportRender, nil)

	failureLogger(logger).HandleError(context.Background(), task, errors.Join(errors.New("bad id"), asynq.SkipRetry))
	require.Contains(t, buf.String(), "task failed permanently")
	require.Contains(t, buf.String(), "task=export:render")
}

func TestNewWorkerRejectsBadCronSpec(t *testing.T) {
	task, err := NewCacheWarmTask(5)
	require.NoError(t, err)
	_, err = NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"},
		Cron:      []CronRegistration{{Spec: "every so often", Task: task}},
	})
	require.Error(t, err)
}
