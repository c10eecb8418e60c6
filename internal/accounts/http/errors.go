package http

import (
	"errors"
	"net/http"

	"github.com/nhfoods/ledgerdesk/internal/accounts"
	"github.com/nhfoods/ledgerdesk/internal/platform/httpx"
)

func init() {
	httpx.RegisterErrors(validationProblem)
}

// validationProblem answers 400 with the rejected fields listed under errors.
func validationProblem(err error, p *httpx.ProblemDetail) bool {
	var ve *accounts.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	p.Status, p.Title, p.Detail, p.Errors = http.StatusBadRequest, "Validation Failed", ve.UserMessage(), ve.Fields
	return true
}
