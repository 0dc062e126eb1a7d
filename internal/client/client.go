// Package client talks to the supply service over HTTP.  Every call is
// a single attempt: no retries, no caching.  Response bodies are read
// defensively; a body that is not JSON (or not the expected shape) is
// treated as an empty result, while an enum value the model does not
// know is rejected.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/construction-supply-tracker/internal/metrics"
	"github.com/iliyamo/construction-supply-tracker/internal/model"
)

// TokenSource yields the bearer token for authenticated calls.  The
// session satisfies it.
type TokenSource interface {
	Token() string
}

// APIError is a non-2xx response.  Message is the service's "error"
// field when it sent one.
type APIError struct {
	Action     string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s failed (%d)", e.Action, e.StatusCode)
}

// StatusCode returns the HTTP status of err if it is an *APIError.
func StatusCode(err error) (int, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode, true
	}
	return 0, false
}

// Client is safe for concurrent use.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource

	log *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client (15s timeout).
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.HTTPClient = h } }

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// WithMetrics instruments the transport of the HTTP client.
func WithMetrics(m *metrics.Client) Option {
	return func(c *Client) {
		if m == nil {
			return
		}
		h := *c.HTTPClient
		h.Transport = m.Transport(h.Transport)
		c.HTTPClient = &h
	}
}

// New returns a client for baseURL.  tokens may be nil for callers that
// only use unauthenticated endpoints.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Tokens:     tokens,
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type call struct {
	action      string
	method      string
	path        string
	body        io.Reader
	contentType string
	auth        bool
}

// jsonCall builds a call with a JSON body.  A nil payload sends no body.
func jsonCall(action, method, path string, payload any) (call, error) {
	c := call{action: action, method: method, path: path, auth: true}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return c, fmt.Errorf("%s: encode body: %w", action, err)
		}
		c.body = bytes.NewReader(b)
		c.contentType = "application/json"
	}
	return c, nil
}

// do performs the call and returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, cl.method, c.BaseURL+cl.path, cl.body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cl.action, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	if cl.auth && c.Tokens != nil {
		if tok := c.Tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("action", cl.action),
			zap.String("method", cl.method),
			zap.String("path", cl.path),
			zap.String("request_id", reqID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s failed: %w", cl.action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		// A truncated body is handled like an empty one.
		raw = nil
	}
	c.log.Debug("request",
		zap.String("action", cl.action),
		zap.String("method", cl.method),
		zap.String("path", cl.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.String("request_id", reqID),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		apiErr := &APIError{Action: cl.action, StatusCode: resp.StatusCode, Message: strings.TrimSpace(e.Error)}
		c.log.Warn("request rejected",
			zap.String("action", cl.action),
			zap.Int("status", resp.StatusCode),
			zap.String("request_id", reqID),
			zap.String("error", apiErr.Error()),
		)
		return nil, apiErr
	}
	return raw, nil
}

// decodeObject unmarshals raw into a T.  Unparseable bodies give the
// zero value; unknown enum values give an error.
func decodeObject[T any](action string, raw []byte) (T, error) {
	var v T
	if len(bytes.TrimSpace(raw)) == 0 || !json.Valid(raw) {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		if errors.Is(err, model.ErrInvalidValue) {
			return zero, fmt.Errorf("%s: %w", action, err)
		}
		return zero, nil
	}
	return v, nil
}

// decodeList unmarshals raw into a slice.  Anything that is not a JSON
// array gives an empty slice.
func decodeList[T any](action string, raw []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return []T{}, nil
	}
	v, err := decodeObject[[]T](action, trimmed)
	if err != nil {
		return []T{}, err
	}
	if v == nil {
		return []T{}, nil
	}
	return v, nil
}

func normalizeAll(rs []model.Request) []model.Request {
	for i := range rs {
		rs[i].Normalize()
	}
	return rs
}
