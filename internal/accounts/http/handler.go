// Package http exposes account listing and editing over JSON.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nhfoods/ledgerdesk/internal/accounts"
	"github.com/nhfoods/ledgerdesk/internal/ledger"
	"github.com/nhfoods/ledgerdesk/internal/notify"
	"github.com/nhfoods/ledgerdesk/internal/platform/httpx"
)

// Handler wires account endpoints.
type Handler struct {
	logger  *slog.Logger
	service *accounts.Service
}

// NewHandler constructs the account handler.
func NewHandler(logger *slog.Logger, service *accounts.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{kind}", h.handleList)
	r.Post("/{kind}", h.handleCreate)
	r.Put("/{kind}/{id}", h.handleUpdate)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := notify.NewQueue(0)
	kind, err := ledger.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.RespondError(w, err, q)
		return
	}
	accs, err := h.service.List(r.Context(), kind, q)
	if err != nil {
		httpx.RespondError(w, err, q)
		return
	}
	httpx.Data(w, http.StatusOK, accs, q)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "", http.StatusCreated)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request, id string, status int) {
	q := notify.NewQueue(0)
	kind, err := ledger.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.RespondError(w, err, q)
		return
	}
	var in accounts.Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.logger.Warn("decode account", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed account body")
		return
	}
	acc, err := h.service.Save(r.Context(), kind, id, in, q)
	if err != nil {
		httpx.RespondError(w, err, q)
		return
	}
	httpx.Data(w, status, acc, q)
}
