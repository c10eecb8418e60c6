package http

import (
	"net/http"

	"github.com/nhfoods/ledgerdesk/internal/platform/httpx"
	"github.com/nhfoods/ledgerdesk/internal/reports"
	"github.com/nhfoods/ledgerdesk/internal/reports/export"
)

func init() {
	httpx.RegisterErrors(
		httpx.Status(http.StatusBadRequest, "Bad Request", reports.ErrInvalidPeriod, reports.ErrUnknownType, export.ErrUnknownFormat),
		httpx.Status(http.StatusNotFound, "Not Found", reports.ErrNotFound),
		httpx.Status(http.StatusConflict, "Conflict", reports.ErrInvalidTransition, reports.ErrNotDeletable),
	)
}
