// Package http exposes report generation, saved reports and VAT filing over JSON, with
// optional file exports selected by the format query parameter.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nhfoods/ledgerdesk/internal/notify"
	"github.com/nhfoods/ledgerdesk/internal/platform/httpx"
	"github.com/nhfoods/ledgerdesk/internal/reports"
	"github.com/nhfoods/ledgerdesk/internal/reports/export"
)

const defaultSavedLimit = 20

// Handler wires report endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *reports.Service
	exporter  *export.Exporter
	company   export.Company
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs the report handler.
func NewHandler(logger *slog.Logger, service *reports.Service, exporter *export.Exporter, company export.Company) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		exporter:  exporter,
		company:   company,
		rateLimit: httpx.ExportLimiter(10, time.Minute),
	}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.limitExports)
	r.Get("/trial-balance", h.handleTrialBalance)
	r.Post("/statement-of-account", h.handleStatement)
	r.Post("/{type}/generate", h.handleGenerate)
	r.Get("/saved", h.handleSaved)
	r.Get("/saved/{id}", h.handleLoad)
	r.Post("/vat/{id}/{action}", h.handleTransition)
	r.Delete("/vat/{id}", h.handleDelete)
}

// limitExports throttles only the requests that ask for a file.
func (h *Handler) limitExports(next http.Handler) http.Handler {
	limited := h.rateLimit(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "" {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// respond writes doc as JSON, or as a download when a format was requested.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, doc reports.Document, q *notify.Queue) {
	f, wants, err := httpx.WantsExport(r)
	if err != nil {
		httpx.RespondError(w, err, q)
		return
	}
	if !wants {
		httpx.Data(w, status, doc, q)
		return
	}
	wb, err := export.Layout(h.company, doc)
	if err != nil {
		h.logger.Error("layout report", slog.String("type", string(doc.Type)), slog.Any("error", err))
		httpx.RespondError(w, err, q)
		return
	}
	httpx.Download(w, r, h.exporter, wb, f, q)
}

func (h *Handler) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	q := notify.NewQueue(0)
	doc, err := h.service.TrialBalance(r.Context(), q)
	if err != nil {
		httpx.RespondError(w, err, q)
		return
	}
	h.respond(w, r, http.StatusOK, doc, q)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	q := notify.NewQueue(0)
	t, err := reports.ParseType(chi.URLParam(r, "type"))
	if err != nil {
		httpx.RespondError(w, err, q)
		return
	}
	var req reports.PeriodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed period body")
		return
	}
	doc, err := h.service.Generate(r.Context(), t, req, q)
	if err != nil {
		httpx.RespondError(w, err, q)
		return
	}
	status := http.StatusOK
	if req.Save {
		status = http.StatusCreated
	}
	h.respond(w, r, status, doc, q)
}

type statementBody struct {
	CustomerID string `json:"customerId"`
	FromDate   string `json:"fromDate"`
	ToDate     string `json:"toDate"`
}

func (h *Handler) handleStatement(w http.ResponseWriter, r *http.Request) {
	q := notify.NewQueue(0)
	var body statementBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed statement body")
		return
	}
	req := reports.StatementRequest{CustomerID: strings.TrimSpace(body.CustomerID)}
	var err error
	if req.From, err = parseDay(body.FromDate); err != nil {
		httpx.RespondError(w, err, q)
		return
	}
	if req.To, err = parseDay(body.ToDate); err != nil {
		httpx.RespondError(w, err, q)
		return
	}
	doc, err := h.service.Statement(r.Context(), req, q)
	if err != nil {
		httpx.RespondError(w, err, q)
		return
	}
	h.respond(w, r, http.StatusOK, doc, q)
}

func parseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", httpx.ErrValidation, raw)
	}
	return t, nil
}

func (h *Handler) handleSaved(w http.ResponseWriter, r *http.Request) {
	q := notify.NewQueue(0)
	t, err := reports.ParseType(r.URL.Query().Get("type"))
	if err != nil || !t.Generated() {
		httpx.RespondError(w, fmt.Errorf("%w: saved reports exist for profit-loss, balance-sheet and vat", reports.ErrUnknownType), q)
		return
	}
	limit := defaultSavedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 200 {
			httpx.RespondError(w, fmt.Errorf("%w: limit must be between 1 and 200", httpx.ErrValidation), q)
			return
		}
		limit = n
	}
	list, err := h.service.Saved(r.Context(), t, limit, q)
	if err != nil {
		httpx.RespondError(w, err, q)
		return
	}
	httpx.Data(w, http.StatusOK, list, q)
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	q := notify.NewQueue(0)
	doc, err := h.service.Load(r.Context(), chi.URLParam(r, "id"), q)
	if err != nil {
		httpx.RespondError(w, err, q)
		return
	}
	h.respond(w, r, http.StatusOK, doc, q)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	q := notify.NewQueue(0)
	action := reports.VATAction(strings.ToLower(chi.URLParam(r, "action")))
	if action != reports.VATFinalize && action != reports.VATSubmit {
		httpx.RespondError(w, fmt.Errorf("%w: vat action %q", httpx.ErrNotFound, action), q)
		return
	}
	doc, err := h.service.TransitionVAT(r.Context(), chi.URLParam(r, "id"), action, q)
	if err != nil {
		httpx.RespondError(w, err, q)
		return
	}
	httpx.Data(w, http.StatusOK, doc, q)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	q := notify.NewQueue(0)
	if err := h.service.DeleteVAT(r.Context(), chi.URLParam(r, "id"), q); err != nil {
		httpx.RespondError(w, err, q)
		return
	}
	httpx.Data(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id")}, q)
}
