// Package backend is the REST client for the accounting backend that owns accounts,
// transactions and stored reports.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is wrapped by errors for 404 answers.
var ErrNotFound = errors.New("backend: not found")

// Error is a failed backend call. Message holds the backend's own text when it sent one.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("backend: %s %s: status %d", e.Method, e.Path, e.Status)
}

// UserMessage returns the backend message for notices.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status == 0 {
		return "backend unavailable"
	}
	return http.StatusText(e.Status)
}

// Unwrap maps 404 to ErrNotFound.
func (e *Error) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// FetchLimit caps transactor transaction pages.
	FetchLimit int
}

// Client calls the backend REST API.
type Client struct {
	base       *url.URL
	token      string
	limit      int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("backend: base url required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend: base url %q must be absolute", raw)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:       base,
		token:      cfg.Token,
		limit:      cfg.FetchLimit,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// envelope is the wrapper most endpoints use.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do sends one request and returns the unwrapped payload: the data member when the body
// is an envelope, or the body itself. An envelope without data yields an empty payload.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("backend: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", slog.String("method", method), slog.String("path", path), slog.Any("error", err))
		return nil, fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: read %s %s: %w", method, path, err)
	}
	c.logger.Debug("backend request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	raw = bytes.TrimSpace(raw)
	var env envelope
	isEnvelope := len(raw) > 0 && raw[0] == '{' && json.Unmarshal(raw, &env) == nil
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e := &Error{Method: method, Path: path, Status: resp.StatusCode}
		if isEnvelope {
			e.Message = env.Message
		}
		return nil, e
	}
	if isEnvelope && env.Success != nil {
		if !*env.Success {
			return nil, &Error{Method: method, Path: path, Status: resp.StatusCode, Message: env.Message}
		}
		return env.Data, nil
	}
	if isEnvelope && len(env.Data) > 0 && onlyEnvelopeKeys(raw) {
		return env.Data, nil
	}
	return raw, nil
}

// onlyEnvelopeKeys reports whether the object carries nothing besides envelope members,
// so a report that happens to have a data field is not mistaken for a wrapper.
func onlyEnvelopeKeys(raw json.RawMessage) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	for k := range obj {
		switch k {
		case "data", "message", "success", "status", "count", "total":
		default:
			return false
		}
	}
	return true
}

// list decodes a payload that is either an array or an object holding the array under
// one of keys.
func list(raw json.RawMessage, keys ...string) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []json.RawMessage{}, nil
	}
	if raw[0] == '[' {
		var out []json.RawMessage
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("backend: decode list: %w", err)
		}
		return out, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("backend: decode list: %w", err)
	}
	for _, k := range keys {
		if inner, ok := obj[k]; ok {
			return list(inner)
		}
	}
	return nil, fmt.Errorf("backend: expected a list, got object with keys %v", mapKeys(obj))
}

func mapKeys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
