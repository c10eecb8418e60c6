package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhfoods/ledgerdesk/internal/backend"
	"github.com/nhfoods/ledgerdesk/internal/observability"
	"github.com/nhfoods/ledgerdesk/internal/platform/httpx"
	"github.com/nhfoods/ledgerdesk/jobs"
	_ "github.com/nhfoods/ledgerdesk/testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://erp.example.com/api")
	t.Setenv("APP_TIMEZONE", "Asia/Dubai")
	t.Setenv("PDF_ENGINE", " Gotenberg ")
	t.Setenv("COMPANY_NAME", "NH Foods")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, PDFEngineGotenberg, cfg.PDFEngine)
	require.Equal(t, 10*time.Minute, cfg.ReportCacheTTL)
	require.Equal(t, "Asia/Dubai", cfg.Location().String())
	require.Equal(t, "NH Foods", cfg.Company().Name)
	require.Equal(t, "ledgerdesk-exports", cfg.Storage().Bucket)
	require.False(t, cfg.IsProduction())
}

func TestRedisSettingsShared(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://erp.example.com/api")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_PASSWORD", "s3cret")
	t.Setenv("REDIS_DB", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "redis:6380", cfg.Redis().Addr)
	require.Equal(t, 3, cfg.Redis().DB)
	q := cfg.Queue()
	require.Equal(t, "redis:6380", q.Addr)
	require.Equal(t, "s3cret", q.Password)
	require.Equal(t, 3, q.DB)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://erp.example.com")
	t.Setenv("PDF_ENGINE", "wkhtmltopdf")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("PDF_ENGINE", "gofpdf")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestNilConfigLocation(t *testing.T) {
	var cfg *Config
	require.Equal(t, time.Local, cfg.Location())
}

func TestLoggerHonoursFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "shown", entry["msg"])
	require.Equal(t, "v", entry["k"])
}

func TestExportMimeTypesRegistered(t *testing.T) {
	require.Contains(t, mime.TypeByExtension(".xlsx"), "spreadsheetml")
	require.NotEmpty(t, mime.TypeByExtension(".csv"))
}

func TestRouterBaseRoutes(t *testing.T) {
	metrics := observability.NewMetrics()
	h := NewRouter(RouterParams{
		Logger:     slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Config:     &Config{AppRequestTimeout: time.Second},
		Metrics:    metrics,
		JobHandler: jobs.NewHandler(nil, nil),
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ledgers/vendors/V-1", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "ledgerdesk_http_requests_total")
}

func TestBackendErrorsAnswerBadGateway(t *testing.T) {
	rr := httptest.NewRecorder()
	httpx.RespondError(rr, &backend.Error{Method: "GET", Path: "/vendors", Status: 500, Message: "db down"}, nil)
	require.Equal(t, http.StatusBadGateway, rr.Code)

	var p httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	require.Equal(t, "db down", p.Detail)
}
