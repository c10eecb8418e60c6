package http

import (
	"net/http"

	"github.com/nhfoods/ledgerdesk/internal/exports"
	"github.com/nhfoods/ledgerdesk/internal/platform/httpx"
)

func init() {
	httpx.RegisterErrors(
		httpx.Status(http.StatusBadRequest, "Bad Request", exports.ErrInvalid),
		httpx.Status(http.StatusNotFound, "Not Found", exports.ErrNotFound),
		httpx.Status(http.StatusConflict, "Conflict", exports.ErrInvalidStatus),
	)
}
