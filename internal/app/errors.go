package app

import (
	"errors"
	"net/http"

	"github.com/nhfoods/ledgerdesk/internal/backend"
	"github.com/nhfoods/ledgerdesk/internal/platform/httpx"
)

func init() {
	httpx.RegisterErrors(backendProblem)
}

// backendProblem answers 502 for failed upstream calls that no domain mapping claimed.
func backendProblem(err error, p *httpx.ProblemDetail) bool {
	var be *backend.Error
	if !errors.As(err, &be) {
		return false
	}
	p.Status, p.Title, p.Detail = http.StatusBadGateway, "Backend Error", be.UserMessage()
	return true
}
