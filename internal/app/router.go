package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	accountshttp "github.com/nhfoods/ledgerdesk/internal/accounts/http"
	exportshttp "github.com/nhfoods/ledgerdesk/internal/exports/http"
	ledgerhttp "github.com/nhfoods/ledgerdesk/internal/ledger/http"
	"github.com/nhfoods/ledgerdesk/internal/observability"
	"github.com/nhfoods/ledgerdesk/internal/platform/httpx"
	reportshttp "github.com/nhfoods/ledgerdesk/internal/reports/http"
	"github.com/nhfoods/ledgerdesk/jobs"
	"github.com/nhfoods/ledgerdesk/report"
)

// RouterParams groups dependencies for building the HTTP router. Nil handlers are not
// mounted.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	AccountsHandler *accountshttp.Handler
	LedgerHandler   *ledgerhttp.Handler
	ReportsHandler  *reportshttp.Handler
	ExportsHandler  *exportshttp.Handler
	JobHandler      *jobs.Handler
	PDFHandler      *report.Handler
}

// NewRouter constructs the chi.Router with ledgerdesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.PDFHandler != nil {
		r.Route("/report", params.PDFHandler.MountRoutes)
	}

	r.Route("/api", func(r chi.Router) {
		if params.AccountsHandler != nil {
			r.Route("/accounts", params.AccountsHandler.MountRoutes)
		}
		if params.LedgerHandler != nil {
			r.Route("/ledgers", params.LedgerHandler.MountRoutes)
		}
		if params.ReportsHandler != nil {
			r.Route("/reports", params.ReportsHandler.MountRoutes)
		}
		if params.ExportsHandler != nil {
			r.Route("/exports", params.ExportsHandler.MountRoutes)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	return r
}
