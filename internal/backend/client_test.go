package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nhfoods/ledgerdesk/internal/ledger"
	"github.com/nhfoods/ledgerdesk/internal/notify"
	"github.com/nhfoods/ledgerdesk/internal/reports"
	_ "github.com/nhfoods/ledgerdesk/testing"
)

type route struct {
	method string
	path   string
	status int
	body   string
	check  func(t *testing.T, r *http.Request)
}

func newBackend(t *testing.T, routes ...route) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, rt := range routes {
			if rt.method == r.Method && rt.path == r.URL.Path {
				require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				if rt.check != nil {
					rt.check(t, r)
				}
				status := rt.status
				if status == 0 {
					status = http.StatusOK
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_, _ = io.WriteString(w, rt.body)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"success":false,"message":"no route"}`)
	}))
	t.Cleanup(server.Close)
	c, err := NewClient(Config{BaseURL: server.URL + "/api/", Token: "secret", Timeout: time.Second, FetchLimit: 50}, nil)
	require.NoError(t, err)
	return c
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	require.Error(t, err)
	_, err = NewClient(Config{BaseURL: "backend.local"}, nil)
	require.Error(t, err)
}

func TestListAccountsAcceptsEnvelopeAndRawArray(t *testing.T) {
	c := newBackend(t,
		route{method: http.MethodGet, path: "/api/ledger/credit-accounts", body: `{"success":true,"data":[{"_id":"v1","id":"V-01","name":"Gulf Traders","openingBalance":"1000","trn":"100200300400003"}]}`},
		route{method: http.MethodGet, path: "/api/account-v2/Transactor", body: `[{"_id":"t1","id":"1010","name":"Main Bank","accountType":"asset","accountCategory":"bank","currentBalance":5000}]`},
		route{method: http.MethodGet, path: "/api/expense-accounts/coa/list", body: `{"data":{"accounts":[{"_id":"e1","name":"Rent","accountType":"expense"}]}}`},
	)
	ctx := context.Background()

	vendors, err := c.ListAccounts(ctx, ledger.KindVendor)
	require.NoError(t, err)
	require.Len(t, vendors, 1)
	v, ok := vendors[0].(ledger.Vendor)
	require.True(t, ok)
	require.Equal(t, "100200300400003", v.TRN)
	require.True(t, decimal.NewFromInt(1000).Equal(v.OpeningBalance))

	transactors, err := c.ListAccounts(ctx, ledger.KindTransactor)
	require.NoError(t, err)
	tr := transactors[0].(ledger.Transactor)
	require.Equal(t, ledger.CategoryBank, tr.Category)
	require.Equal(t, "t1", tr.InternalID)

	expenses, err := c.ListAccounts(ctx, ledger.KindExpense)
	require.NoError(t, err)
	require.Equal(t, ledger.KindExpense, expenses[0].Kind())
}

func TestErrorsCarryBackendMessage(t *testing.T) {
	c := newBackend(t,
		route{method: http.MethodGet, path: "/api/ledger/debit-accounts", status: http.StatusBadGateway, body: `{"success":false,"message":"database offline"}`},
		route{method: http.MethodGet, path: "/api/account-v2/Transactor", body: `{"success":false,"message":"session expired"}`},
	)
	ctx := context.Background()

	_, err := c.ListAccounts(ctx, ledger.KindCustomer)
	var be *Error
	require.ErrorAs(t, err, &be)
	require.Equal(t, http.StatusBadGateway, be.Status)
	require.Equal(t, "database offline", notify.Message(err))

	_, err = c.ListAccounts(ctx, ledger.KindTransactor)
	require.ErrorAs(t, err, &be)
	require.Equal(t, "session expired", be.UserMessage())

	_, err = c.SavedReport(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, reports.ErrNotFound)
}

func TestEntriesPerKind(t *testing.T) {
	c := newBackend(t,
		route{method: http.MethodGet, path: "/api/account-v2/transactor/t1/transactions", body: `{"data":{"transactions":[{"date":"2024-01-05","debitAmount":100}]}}`,
			check: func(t *testing.T, r *http.Request) { require.Equal(t, "50", r.URL.Query().Get("limit")) }},
		route{method: http.MethodGet, path: "/api/ledger/ledger/vendor/v1", body: `[{"date":"2024-01-05","type":"Purchase Order","amount":500},{"date":"","type":"Payment Made","amount":100}]`},
		route{method: http.MethodGet, path: "/api/expense-accounts/coa/e1/transactions", body: `{"data":[]}`,
			check: func(t *testing.T, r *http.Request) {
				q := r.URL.Query()
				require.Equal(t, "custom", q.Get("filterType"))
				require.Equal(t, "2024-01-01", q.Get("startDate"))
				require.Equal(t, "2024-01-31", q.Get("endDate"))
			}},
	)
	ctx := context.Background()

	entries, err := c.Entries(ctx, ledger.Transactor{AccountBase: ledger.AccountBase{InternalID: "t1"}}, ledger.DateFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, entries[0].Dated())

	entries, err = c.Entries(ctx, ledger.Vendor{AccountBase: ledger.AccountBase{ID: "v1"}}, ledger.DateFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.False(t, entries[1].Dated())

	filter := ledger.DateFilter{
		Type: ledger.FilterCustom,
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	entries, err = c.Entries(ctx, ledger.Expense{AccountBase: ledger.AccountBase{InternalID: "e1"}}, filter)
	require.NoError(t, err)
	require.Empty(t, entries)

	_, err = c.Entries(ctx, nil, filter)
	require.ErrorIs(t, err, ledger.ErrNilAccount)
}

func TestSaveAccountCreatesThenUpdates(t *testing.T) {
	c := newBackend(t,
		route{method: http.MethodPost, path: "/api/ledger/debit-accounts", body: `{"success":true,"data":{"_id":"c9","name":"Blue Sea"}}`,
			check: func(t *testing.T, r *http.Request) {
				var body map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				require.Equal(t, "Blue Sea", body["name"])
			}},
		route{method: http.MethodPut, path: "/api/ledger/debit-accounts/c9", body: `{"success":true,"message":"updated"}`},
	)
	ctx := context.Background()

	saved, err := c.SaveAccount(ctx, ledger.Customer{AccountBase: ledger.AccountBase{Name: "Blue Sea"}})
	require.NoError(t, err)
	require.Equal(t, "c9", saved.Base().InternalID)

	updated := saved.(ledger.Customer)
	updated.Phone = "+971 4 000 0000"
	again, err := c.SaveAccount(ctx, updated)
	require.NoError(t, err)
	require.Equal(t, "+971 4 000 0000", again.(ledger.Customer).Phone)
}

func TestReportEndpoints(t *testing.T) {
	c := newBackend(t,
		route{method: http.MethodPost, path: "/api/reports/vat/generate", body: `{"success":true,"data":{"_id":"vat-1","status":"DRAFT"}}`,
			check: func(t *testing.T, r *http.Request) {
				var body map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				require.Equal(t, "quarterly", body["periodType"])
				require.EqualValues(t, 1, body["quarter"])
				_, hasMonth := body["month"]
				require.False(t, hasMonth)
			}},
		route{method: http.MethodPost, path: "/api/reports/statement-of-account/generate", body: `{"data":{"openingBalance":0}}`,
			check: func(t *testing.T, r *http.Request) {
				var body map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				require.Equal(t, "c1", body["customerId"])
				require.Equal(t, "2024-01-01", body["fromDate"])
			}},
		route{method: http.MethodGet, path: "/api/reports/saved", body: `{"data":{"reports":[{"_id":"a"},{"_id":"b"}]}}`,
			check: func(t *testing.T, r *http.Request) {
				require.Equal(t, "vat", r.URL.Query().Get("reportType"))
				require.Equal(t, "5", r.URL.Query().Get("limit"))
			}},
		route{method: http.MethodPost, path: "/api/reports/vat/vat-1/finalize", status: http.StatusNoContent},
		route{method: http.MethodDelete, path: "/api/reports/saved/vat-1", body: `{"success":true}`},
	)
	ctx := context.Background()

	raw, err := c.GenerateReport(ctx, reports.TypeVAT, reports.PeriodRequest{PeriodType: reports.PeriodQuarterly, Year: 2024, Quarter: 1})
	require.NoError(t, err)
	require.JSONEq(t, `{"_id":"vat-1","status":"DRAFT"}`, string(raw))

	_, err = c.GenerateReport(ctx, reports.TypeTrialBalance, reports.PeriodRequest{})
	require.ErrorIs(t, err, reports.ErrUnknownType)

	_, err = c.GenerateStatement(ctx, reports.StatementRequest{CustomerID: "c1", From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	saved, err := c.SavedReports(ctx, reports.TypeVAT, 5)
	require.NoError(t, err)
	require.Len(t, saved, 2)

	raw, err = c.TransitionVAT(ctx, "vat-1", reports.VATFinalize)
	require.NoError(t, err)
	require.Empty(t, raw)

	require.NoError(t, c.DeleteReport(ctx, "vat-1"))
}

func TestReportWithDataFieldIsNotUnwrapped(t *testing.T) {
	c := newBackend(t,
		route{method: http.MethodGet, path: "/api/reports/saved/pl-1", body: `{"_id":"pl-1","reportType":"profit-loss","data":{"netProfit":10}}`},
	)
	raw, err := c.SavedReport(context.Background(), "pl-1")
	require.NoError(t, err)
	var obj map[string]any
	require.NoError(t, json.Unmarshal(raw, &obj))
	require.Equal(t, "pl-1", obj["_id"])
}

func TestTransportFailure(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond}, nil)
	require.NoError(t, err)
	_, err = c.ListAccounts(context.Background(), ledger.KindVendor)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound))
}
