package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/nhfoods/ledgerdesk/internal/accounts"
	"github.com/nhfoods/ledgerdesk/internal/ledger"
	"github.com/nhfoods/ledgerdesk/internal/platform/httpx"
	_ "github.com/nhfoods/ledgerdesk/testing"
)

type store struct{ accounts []ledger.Account }

func (s *store) ListAccounts(context.Context, ledger.Kind) ([]ledger.Account, error) {
	return s.accounts, nil
}

func (s *store) SaveAccount(_ context.Context, acc ledger.Account) (ledger.Account, error) {
	s.accounts = append(s.accounts, acc)
	return acc, nil
}

func newRouter(s *store) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Route("/api/accounts", NewHandler(logger, accounts.NewService(s, logger)).MountRoutes)
	return r
}

func TestListAccounts(t *testing.T) {
	s := &store{accounts: []ledger.Account{ledger.Vendor{AccountBase: ledger.AccountBase{InternalID: "v1", Name: "Gulf Traders"}}}}
	rr := httptest.NewRecorder()
	newRouter(s).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/accounts/vendors", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "Gulf Traders", body.Data[0]["name"])

	rr = httptest.NewRecorder()
	newRouter(s).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/accounts/banks", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateAccountValidation(t *testing.T) {
	s := &store{}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/accounts/transactors", strings.NewReader(`{"name":"Main Bank","accountType":"asset"}`))
	newRouter(s).ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	var p httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	require.Equal(t, "accountCategory is required", p.Errors["accountCategory"])
	require.Len(t, p.Notices, 1)
	require.Empty(t, s.accounts)
}

func TestCreateAndUpdateAccount(t *testing.T) {
	s := &store{}
	h := newRouter(s)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/accounts/customers", strings.NewReader(`{"name":"Blue Sea","creditLimit":"5000"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/accounts/customers/c1", strings.NewReader(`{"name":"Blue Sea LLC"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, s.accounts, 2)
	require.Equal(t, "c1", s.accounts[1].Base().InternalID)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/accounts/customers/c1", strings.NewReader(`{"name":"x","unknown":1}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestValidationErrorProblemListsFields(t *testing.T) {
	rr := httptest.NewRecorder()
	httpx.RespondError(rr, &accounts.ValidationError{Fields: map[string]string{"name": "name is required"}}, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var p httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	require.Equal(t, "Validation Failed", p.Title)
	require.Equal(t, "name is required", p.Errors["name"])
}
