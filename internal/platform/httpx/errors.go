package httpx

import (
	"errors"
	"net/http"
	"sync"

	"github.com/nhfoods/ledgerdesk/internal/notify"
)

// Sentinel errors for handlers that have no domain error to return.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrValidation = errors.New("validation failed")
)

// ErrorMapper fills p for errors it recognises and reports whether it did.
type ErrorMapper func(err error, p *ProblemDetail) bool

var registry struct {
	sync.RWMutex
	mappers []ErrorMapper
}

// RegisterErrors adds mappers consulted by RespondError. Packages owning domain errors
// register them from their HTTP adapters. Earlier registrations win.
func RegisterErrors(mappers ...ErrorMapper) {
	registry.Lock()
	defer registry.Unlock()
	registry.mappers = append(registry.mappers, mappers...)
}

// Status maps errors matching any of targets to status, with the error text as detail.
func Status(status int, title string, targets ...error) ErrorMapper {
	return func(err error, p *ProblemDetail) bool {
		for _, target := range targets {
			if errors.Is(err, target) {
				p.Status, p.Title, p.Detail = status, title, err.Error()
				return true
			}
		}
		return false
	}
}

var builtin = []ErrorMapper{
	Status(http.StatusBadRequest, "Bad Request", ErrValidation),
	Status(http.StatusNotFound, "Not Found", ErrNotFound),
}

// RespondError maps errors to HTTP responses using RFC7807. Unrecognised errors become
// 500. Notices queued in q travel with the problem.
func RespondError(w http.ResponseWriter, err error, q *notify.Queue) {
	p := problemFor(err)
	p.Notices = drain(q)
	WriteProblem(w, p)
}

func problemFor(err error) ProblemDetail {
	var p ProblemDetail
	for _, m := range builtin {
		if m(err, &p) {
			return p
		}
	}
	registry.RLock()
	defer registry.RUnlock()
	for _, m := range registry.mappers {
		if m(err, &p) {
			return p
		}
	}
	return ProblemDetail{Status: http.StatusInternalServerError, Title: "Internal Error"}
}
