// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/nhfoods/ledgerdesk/internal/notify"
)

// ProblemDetail represents RFC7807 problem details. Errors carries per-field messages
// for validation failures and Notices the request's drained notifications.
type ProblemDetail struct {
	Type    string            `json:"type,omitempty"`
	Title   string            `json:"title"`
	Status  int               `json:"status"`
	Detail  string            `json:"detail,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Notices []notify.Notice   `json:"notices,omitempty"`
}

// Envelope is the body of successful JSON responses.
type Envelope struct {
	Data    any             `json:"data"`
	Notices []notify.Notice `json:"notices"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Data wraps data in an Envelope together with the notices queued for this request.
func Data(w http.ResponseWriter, status int, data any, q *notify.Queue) {
	JSON(w, status, Envelope{Data: data, Notices: drain(q)})
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	WriteProblem(w, ProblemDetail{Title: title, Status: status, Detail: detail})
}

// WriteProblem sends p as application/problem+json.
func WriteProblem(w http.ResponseWriter, p ProblemDetail) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// DecodeJSON decodes JSON request body into the target struct. Unknown fields are
// rejected.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

func drain(q *notify.Queue) []notify.Notice {
	if q == nil {
		return []notify.Notice{}
	}
	if n := q.Drain(); n != nil {
		return n
	}
	return []notify.Notice{}
}
