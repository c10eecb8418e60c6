// Package http queues background exports and reports their progress.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nhfoods/ledgerdesk/internal/exports"
	"github.com/nhfoods/ledgerdesk/internal/notify"
	"github.com/nhfoods/ledgerdesk/internal/platform/httpx"
)

// Handler wires export job endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *exports.Service
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs the export job handler.
func NewHandler(logger *slog.Logger, service *exports.Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rateLimit: httpx.ExportLimiter(10, time.Minute)}
}

// MountRoutes registers export job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rateLimit).Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	q := notify.NewQueue(0)
	var req exports.Request
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed export body")
		return
	}
	job, err := h.service.Enqueue(r.Context(), req, q)
	if err != nil {
		httpx.RespondError(w, err, q)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("%s/%s", strings.TrimSuffix(r.URL.Path, "/"), job.ID))
	httpx.Data(w, http.StatusAccepted, job, q)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 200 {
			httpx.RespondError(w, fmt.Errorf("%w: limit must be between 1 and 200", httpx.ErrValidation), nil)
			return
		}
		limit = n
	}
	jobs, err := h.service.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("list export jobs", slog.Any("error", err))
		httpx.RespondError(w, err, nil)
		return
	}
	httpx.Data(w, http.StatusOK, jobs, nil)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: export job %q", httpx.ErrNotFound, chi.URLParam(r, "id")), nil)
		return
	}
	job, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err, nil)
		return
	}
	httpx.Data(w, http.StatusOK, job, nil)
}
