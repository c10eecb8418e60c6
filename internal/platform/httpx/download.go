package httpx

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/nhfoods/ledgerdesk/internal/notify"
	"github.com/nhfoods/ledgerdesk/internal/reports/export"
)

type trackingSink struct {
	export.HTTPSink
	started bool
}

func (s *trackingSink) Put(ctx context.Context, name, contentType string, data []byte) error {
	s.started = true
	return s.HTTPSink.Put(ctx, name, contentType, data)
}

// Download renders wb through e and sends it as an attachment. When rendering fails
// nothing has been written yet, so a problem carrying the notices is sent instead.
func Download(w http.ResponseWriter, r *http.Request, e *export.Exporter, wb export.Workbook, f export.Format, q *notify.Queue) {
	sink := &trackingSink{HTTPSink: export.HTTPSink{W: w}}
	if e.Export(r.Context(), wb, f, sink, q) || sink.started {
		return
	}
	WriteProblem(w, ProblemDetail{
		Status:  http.StatusInternalServerError,
		Title:   "Export Failed",
		Notices: drain(q),
	})
}

// ExportLimiter throttles export endpoints per client address.
func ExportLimiter(requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(requests, window, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "ip:" + r.RemoteAddr, nil
		}
		return "ip:" + host, nil
	}))
}

// WantsExport reports the requested export format; ok is false for a plain JSON answer.
func WantsExport(r *http.Request) (f export.Format, ok bool, err error) {
	raw := r.URL.Query().Get("format")
	if raw == "" || raw == "json" {
		return "", false, nil
	}
	f, err = export.ParseFormat(raw)
	return f, err == nil, err
}
