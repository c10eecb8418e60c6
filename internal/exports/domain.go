// Package exports renders reports and ledgers in the background and keeps a history of
// the produced files.
package exports

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhfoods/ledgerdesk/internal/ledger"
	"github.com/nhfoods/ledgerdesk/internal/reports"
	"github.com/nhfoods/ledgerdesk/internal/reports/export"
)

// Status captures the state of an export job.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Source selects what an export job renders.
type Source string

const (
	SourceReport    Source = "report"
	SourceLedger    Source = "ledger"
	SourceStatement Source = "statement"
)

var (
	// ErrInvalid flags a request that cannot be rendered.
	ErrInvalid = errors.New("exports: invalid request")
	// ErrNotFound is returned for unknown job ids.
	ErrNotFound = errors.New("exports: job not found")
	// ErrInvalidStatus is returned when a job cannot move to the requested status.
	ErrInvalidStatus = errors.New("exports: invalid job status")
)

// BusyError is returned by Run for a job another attempt claimed less than a lease ago.
// The job can be claimed again after RetryAfter.
type BusyError struct {
	ID         uuid.UUID
	StartedAt  time.Time
	RetryAfter time.Duration
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("exports: job %s running since %s", e.ID, e.StartedAt.Format(time.RFC3339))
}

// Request describes one export. Which fields apply depends on Source.
type Request struct {
	Source Source        `json:"source"`
	Format export.Format `json:"format"`

	ReportType reports.Type           `json:"reportType,omitempty"`
	Period     *reports.PeriodRequest `json:"period,omitempty"`
	SavedID    string                 `json:"savedId,omitempty"`

	AccountKind string `json:"accountKind,omitempty"`
	AccountID   string `json:"accountId,omitempty"`
	Filter      string `json:"filter,omitempty"`

	CustomerID string `json:"customerId,omitempty"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
}

// Validate normalises r and checks the fields its source needs.
func (r *Request) Validate() error {
	f, err := export.ParseFormat(string(r.Format))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	r.Format = f
	r.Source = Source(strings.ToLower(strings.TrimSpace(string(r.Source))))
	switch r.Source {
	case SourceReport:
		return r.validateReport()
	case SourceLedger:
		kind, err := ledger.ParseKind(r.AccountKind)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		r.AccountKind = string(kind)
		if strings.TrimSpace(r.AccountID) == "" {
			return fmt.Errorf("%w: accountId is required", ErrInvalid)
		}
		if _, err := r.DateFilter(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	case SourceStatement:
		if _, err := r.Statement(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	default:
		return fmt.Errorf("%w: source must be report, ledger or statement", ErrInvalid)
	}
	return nil
}

func (r *Request) validateReport() error {
	if r.SavedID = strings.TrimSpace(r.SavedID); r.SavedID != "" {
		return nil
	}
	t, err := reports.ParseType(string(r.ReportType))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	r.ReportType = t
	switch {
	case t == reports.TypeTrialBalance:
		return nil
	case t == reports.TypeStatement:
		return fmt.Errorf("%w: use the statement source for statements of account", ErrInvalid)
	case r.Period == nil:
		return fmt.Errorf("%w: period is required for %s", ErrInvalid, t)
	}
	r.Period.Save = false
	if err := r.Period.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// DateFilter returns the ledger filter of a ledger request.
func (r Request) DateFilter() (ledger.DateFilter, error) {
	return ledger.ParseFilter(r.Filter, r.From, r.To)
}

// Statement returns the statement request of a statement export.
func (r Request) Statement() (reports.StatementRequest, error) {
	f, err := ledger.ParseFilter(string(ledger.FilterCustom), r.From, r.To)
	if err != nil {
		return reports.StatementRequest{}, err
	}
	req := reports.StatementRequest{CustomerID: strings.TrimSpace(r.CustomerID), From: f.From, To: f.To}
	return req, req.Validate()
}

// Job is one export request and its outcome.
type Job struct {
	ID          uuid.UUID  `json:"id"`
	Request     Request    `json:"request"`
	Status      Status     `json:"status"`
	Filename    string     `json:"filename,omitempty"`
	ObjectKey   string     `json:"objectKey,omitempty"`
	Size        int64      `json:"size"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
	DownloadURL string     `json:"downloadUrl,omitempty"`
}
