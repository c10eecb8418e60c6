package jobs

import "log/slog"

// Observer records job outcomes; *observability.Metrics implements it.
type Observer interface {
	ObserveJob(task string, ok bool)
}

func track(o Observer, task string, err *error) {
	if o == nil {
		return
	}
	o.ObserveJob(task, *err == nil)
}

func jobLogger(logger *slog.Logger, task string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", task))
}
