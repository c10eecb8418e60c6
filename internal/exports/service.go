package exports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nhfoods/ledgerdesk/internal/notify"
	"github.com/nhfoods/ledgerdesk/internal/reports/export"
)

// Store persists jobs; *Repository implements it.
type Store interface {
	Insert(ctx context.Context, job Job) error
	Get(ctx context.Context, id uuid.UUID) (Job, error)
	List(ctx context.Context, limit int) ([]Job, error)
	MarkRunning(ctx context.Context, id uuid.UUID, at, staleBefore time.Time) error
	MarkReady(ctx context.Context, id uuid.UUID, filename, key string, size int64, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string, at time.Time) error
}

// Queue hands job ids to the background worker.
type Queue interface {
	EnqueueExport(ctx context.Context, id uuid.UUID) error
}

// Builder turns a request into a workbook.
type Builder interface {
	Build(ctx context.Context, req Request, n notify.Notifier) (export.Workbook, error)
}

// Files stores rendered exports and links to them; *storage.Bucket implements it.
type Files interface {
	export.Sink
	Key(name string) string
	URL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Config wires a Service.
type Config struct {
	Store    Store
	Queue    Queue
	Builder  Builder
	Exporter *export.Exporter
	Files    Files
	// LinkExpiry bounds presigned download links. Defaults to 15 minutes.
	LinkExpiry time.Duration
	// Lease is how long a running attempt owns its job. A job still running after its
	// lease is taken over by the next attempt. Defaults to 10 minutes.
	Lease  time.Duration
	Logger *slog.Logger
}

// Service queues export jobs and runs them.
type Service struct {
	store    Store
	queue    Queue
	builder  Builder
	exporter *export.Exporter
	files    Files
	expiry   time.Duration
	lease    time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.LinkExpiry <= 0 {
		cfg.LinkExpiry = 15 * time.Minute
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 10 * time.Minute
	}
	return &Service{
		store:    cfg.Store,
		queue:    cfg.Queue,
		builder:  cfg.Builder,
		exporter: cfg.Exporter,
		files:    cfg.Files,
		expiry:   cfg.LinkExpiry,
		lease:    cfg.Lease,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Enqueue validates req, records a queued job and hands it to the worker.
func (s *Service) Enqueue(ctx context.Context, req Request, n notify.Notifier) (Job, error) {
	if err := req.Validate(); err != nil {
		notify.Errorf(n, "Cannot export: %s", notify.Message(err))
		return Job{}, err
	}
	job := Job{ID: uuid.New(), Request: req, Status: StatusQueued, CreatedAt: s.now().UTC()}
	if err := s.store.Insert(ctx, job); err != nil {
		s.logger.Error("insert export job", slog.Any("error", err))
		notify.Errorf(n, "Failed to queue export: %s", notify.Message(err))
		return Job{}, err
	}
	if err := s.queue.EnqueueExport(ctx, job.ID); err != nil {
		s.logger.Error("enqueue export job", slog.String("job_id", job.ID.String()), slog.Any("error", err))
		_ = s.store.MarkFailed(ctx, job.ID, "could not queue job", s.now().UTC())
		notify.Errorf(n, "Failed to queue export: %s", notify.Message(err))
		return Job{}, err
	}
	notify.Successf(n, "Export queued")
	return job, nil
}

// History lists recent jobs, newest first, with download links for finished ones.
func (s *Service) History(ctx context.Context, limit int) ([]Job, error) {
	jobs, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range jobs {
		s.link(ctx, &jobs[i])
	}
	return jobs, nil
}

// Get loads a job and, when it is ready, a download link.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Job, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	s.link(ctx, &job)
	return job, nil
}

func (s *Service) link(ctx context.Context, job *Job) {
	if job.Status != StatusReady || job.ObjectKey == "" || s.files == nil {
		return
	}
	u, err := s.files.URL(ctx, job.ObjectKey, s.expiry)
	if err != nil {
		s.logger.Warn("presign export", slog.String("job_id", job.ID.String()), slog.Any("error", err))
		return
	}
	job.DownloadURL = u
}

// Run renders one job and stores the file. A ready job is left alone. A job another
// attempt started within the lease yields a *BusyError; once the lease has passed the
// job is taken over.
func (s *Service) Run(ctx context.Context, id uuid.UUID) error {
	if s.builder == nil || s.exporter == nil || s.files == nil {
		return fmt.Errorf("exports: runner not configured")
	}
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Status == StatusReady {
		return nil
	}
	now := s.now().UTC()
	if err := s.store.MarkRunning(ctx, id, now, now.Add(-s.lease)); err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			current, loadErr := s.store.Get(ctx, id)
			if loadErr != nil {
				return err
			}
			switch current.Status {
			case StatusReady:
				return nil
			case StatusRunning:
				return s.busy(current, now)
			}
		}
		return err
	}
	if job.Status == StatusRunning {
		s.logger.Warn("export lease expired, taking over", slog.String("job_id", id.String()))
	}

	q := notify.NewQueue(0)
	wb, err := s.builder.Build(ctx, job.Request, q)
	if err != nil {
		s.fail(ctx, id, err.Error())
		return err
	}
	sink := &jobSink{files: s.files, dir: id.String()}
	if !s.exporter.Export(ctx, wb, job.Request.Format, sink, q) {
		msg := lastError(q.Drain())
		s.fail(ctx, id, msg)
		return fmt.Errorf("exports: job %s: %s", id, msg)
	}
	if err := s.store.MarkReady(ctx, id, sink.name, sink.key, sink.size, s.now().UTC()); err != nil {
		return err
	}
	s.logger.Info("export ready", slog.String("job_id", id.String()), slog.String("file", sink.name), slog.Int64("bytes", sink.size))
	return nil
}

func (s *Service) busy(job Job, now time.Time) error {
	started := now
	if job.StartedAt != nil {
		started = *job.StartedAt
	}
	wait := started.Add(s.lease).Sub(now)
	if wait < time.Second {
		wait = time.Second
	}
	return &BusyError{ID: job.ID, StartedAt: started, RetryAfter: wait}
}

func (s *Service) fail(ctx context.Context, id uuid.UUID, msg string) {
	if err := s.store.MarkFailed(ctx, id, msg, s.now().UTC()); err != nil {
		s.logger.Error("mark export failed", slog.String("job_id", id.String()), slog.Any("error", err))
	}
}

func lastError(notices []notify.Notice) string {
	for i := len(notices) - 1; i >= 0; i-- {
		if notices[i].Level == notify.LevelError {
			return notices[i].Message
		}
	}
	return "export failed"
}

// jobSink stores the file under a per-job directory and remembers where it went.
type jobSink struct {
	files Files
	dir   string
	name  string
	key   string
	size  int64
}

func (s *jobSink) Put(ctx context.Context, name, contentType string, data []byte) error {
	object := s.dir + "/" + name
	if err := s.files.Put(ctx, object, contentType, data); err != nil {
		return err
	}
	s.name, s.key, s.size = name, s.files.Key(object), int64(len(data))
	return nil
}
