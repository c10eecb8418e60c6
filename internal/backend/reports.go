package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nhfoods/ledgerdesk/internal/ledger"
	"github.com/nhfoods/ledgerdesk/internal/reports"
)

var (
	_ ledger.Source         = (*Client)(nil)
	_ reports.Source        = (*Client)(nil)
	_ reports.AccountLister = (*Client)(nil)
)

// GenerateReport asks the backend to build a periodic report.
func (c *Client) GenerateReport(ctx context.Context, t reports.Type, req reports.PeriodRequest) (json.RawMessage, error) {
	if !t.Generated() {
		return nil, fmt.Errorf("%w: %s is not generated by the backend", reports.ErrUnknownType, t)
	}
	return c.do(ctx, http.MethodPost, "/reports/"+string(t)+"/generate", nil, req)
}

// GenerateStatement asks the backend for a customer statement.
func (c *Client) GenerateStatement(ctx context.Context, req reports.StatementRequest) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/reports/statement-of-account/generate", nil, req)
}

// SavedReports lists stored reports of one type, newest first as the backend orders them.
func (c *Client) SavedReports(ctx context.Context, t reports.Type, limit int) ([]json.RawMessage, error) {
	q := url.Values{"reportType": {string(t)}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	raw, err := c.do(ctx, http.MethodGet, "/reports/saved", q, nil)
	if err != nil {
		return nil, err
	}
	return list(raw, "reports", "items")
}

// SavedReport fetches one stored report.
func (c *Client) SavedReport(ctx context.Context, id string) (json.RawMessage, error) {
	raw, err := c.do(ctx, http.MethodGet, "/reports/saved/"+url.PathEscape(id), nil, nil)
	return raw, notFound(err)
}

// TransitionVAT finalizes or submits a VAT report. The backend may answer with the
// updated report or with an empty body.
func (c *Client) TransitionVAT(ctx context.Context, id string, action reports.VATAction) (json.RawMessage, error) {
	raw, err := c.do(ctx, http.MethodPost, "/reports/vat/"+url.PathEscape(id)+"/"+string(action), nil, nil)
	return raw, notFound(err)
}

// DeleteReport removes a stored report.
func (c *Client) DeleteReport(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/reports/saved/"+url.PathEscape(id), nil, nil)
	return notFound(err)
}

// notFound adds reports.ErrNotFound to 404 errors so callers can match on it.
func notFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %w", reports.ErrNotFound, err)
	}
	return err
}
