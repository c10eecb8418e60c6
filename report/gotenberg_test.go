package report

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestRenderHTMLRetriesOnBadGateway(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		mt, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		require.Equal(t, "multipart/form-data", mt)
		require.NotEmpty(t, params["boundary"])
		_, _ = io.Copy(io.Discard, r.Body)
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(make([]byte, 2048))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL+"/", Options{})
	require.NoError(t, err)
	pdf, err := client.RenderHTML(context.Background(), "<html></html>")
	require.NoError(t, err)
	require.Len(t, pdf, 2048)
	require.Equal(t, int32(2), calls.Load())
}

func TestRenderHTMLFailsWhenTooSmall(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("small"))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, Options{Retries: 1})
	require.NoError(t, err)
	_, err = client.RenderHTML(context.Background(), "<html></html>")
	require.ErrorIs(t, err, ErrTooSmall)
	require.Equal(t, int32(2), calls.Load())
}

func TestRenderHTMLDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, Options{})
	require.NoError(t, err)
	_, err = client.RenderHTML(context.Background(), "<html></html>")
	require.ErrorIs(t, err, ErrInvalidResponse)
	require.Equal(t, int32(1), calls.Load())
}

func TestRenderHTMLTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	client, err := NewClient(server.URL, Options{Retries: -1, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	_, err = client.RenderHTML(context.Background(), "<html></html>")
	require.ErrorIs(t, err, ErrTimeout)
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient("  ", Options{})
	require.Error(t, err)
}

func TestPingHandler(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	t.Cleanup(server.Close)
	client, err := NewClient(server.URL, Options{})
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHandler(client, slog.New(slog.NewTextHandler(io.Discard, nil))).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, strings.Contains(rr.Body.String(), `"ok"`))

	healthy.Store(false)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	disabled := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(disabled)
	disabled.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Contains(t, rr.Body.String(), "disabled")
}
