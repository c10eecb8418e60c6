// Package http serves reconstructed account ledgers as JSON or export files.
package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nhfoods/ledgerdesk/internal/ledger"
	"github.com/nhfoods/ledgerdesk/internal/notify"
	"github.com/nhfoods/ledgerdesk/internal/platform/httpx"
	"github.com/nhfoods/ledgerdesk/internal/reports/export"
)

// Handler wires ledger endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *ledger.Service
	exporter  *export.Exporter
	company   export.Company
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs the ledger handler. Exports are limited to ten per minute per
// client address.
func NewHandler(logger *slog.Logger, service *ledger.Service, exporter *export.Exporter, company export.Company) *Handler {
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

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{kind}/{id}", h.handleGet)
	r.Group(func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Get("/{kind}/{id}/export", h.handleExport)
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	q := notify.NewQueue(0)
	l, _, err := h.load(r, q)
	if err != nil {
		httpx.RespondError(w, err, q)
		return
	}
	httpx.Data(w, http.StatusOK, l, q)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	q := notify.NewQueue(0)
	f, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		httpx.RespondError(w, err, q)
		return
	}
	l, filter, err := h.load(r, q)
	if err != nil {
		httpx.RespondError(w, err, q)
		return
	}
	now := h.service.Now()
	wb := export.LedgerWorkbook(h.company, l, now, filter.Label(now))
	httpx.Download(w, r, h.exporter, wb, f, q)
}

func (h *Handler) load(r *http.Request, q *notify.Queue) (ledger.Ledger, ledger.DateFilter, error) {
	kind, err := ledger.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		return ledger.Ledger{}, ledger.DateFilter{}, err
	}
	filter, err := ParseFilter(r)
	if err != nil {
		return ledger.Ledger{}, ledger.DateFilter{}, err
	}
	ref := ledger.AccountRef{Kind: kind, ID: chi.URLParam(r, "id")}
	view := strings.TrimSpace(r.URL.Query().Get("view"))
	l, err := h.service.Load(r.Context(), view, ref, filter, q)
	if err != nil {
		if !errors.Is(err, ledger.ErrSuperseded) {
			h.logger.Warn("ledger request failed", slog.String("kind", string(kind)), slog.String("id", ref.ID), slog.Any("error", err))
		}
		return ledger.Ledger{}, filter, err
	}
	return l, filter, nil
}

// ParseFilter reads the filter, from and to query parameters.
func ParseFilter(r *http.Request) (ledger.DateFilter, error) {
	values := r.URL.Query()
	return ledger.ParseFilter(values.Get("filter"), values.Get("from"), values.Get("to"))
}
