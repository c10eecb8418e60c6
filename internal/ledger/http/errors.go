package http

import (
	"net/http"

	"github.com/nhfoods/ledgerdesk/internal/ledger"
	"github.com/nhfoods/ledgerdesk/internal/platform/httpx"
	"github.com/nhfoods/ledgerdesk/internal/reports/export"
)

func init() {
	httpx.RegisterErrors(
		httpx.Status(http.StatusBadRequest, "Bad Request", ledger.ErrUnknownKind, ledger.ErrUnknownFilter, ledger.ErrInvalidRange, export.ErrUnknownFormat),
		httpx.Status(http.StatusNotFound, "Not Found", ledger.ErrAccountNotFound),
		httpx.Status(http.StatusConflict, "Superseded", ledger.ErrSuperseded),
	)
}
