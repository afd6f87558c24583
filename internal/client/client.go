// ABOUTME: HTTP client for the remote read and write endpoints.
// ABOUTME: Decodes layout envelopes and turns failures into APIError values.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/2389/basiclist/internal/layout"
	"github.com/2389/basiclist/internal/metrics"
	"go.uber.org/zap"
)

const maxBody = 10 << 20

// APIError is a non-2xx answer from the remote API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Message
}

// Query is the list read state: paging plus search filters.
type Query struct {
	Page    int
	PerPage int
	Filters map[string]any
	// Sort names the column to order by; empty leaves the server's order.
	Sort string
	Desc bool
}

// Values returns the query parameters. Slices are comma-joined, and empty
// strings and nils are skipped.
func (q Query) Values() url.Values {
	vals := url.Values{}
	for k, v := range q.Filters {
		if s, ok := queryValue(v); ok {
			vals.Set(k, s)
		}
	}
	if q.Page > 0 {
		vals.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		vals.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.Sort != "" {
		vals.Set("sort", q.Sort)
		order := "asc"
		if q.Desc {
			order = "desc"
		}
		vals.Set("order", order)
	}
	return vals
}

// Encode serialises the query with keys sorted.
func (q Query) Encode() string {
	return q.Values().Encode()
}

func queryValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, val != ""
	case time.Time:
		if val.IsZero() {
			return "", false
		}
		return val.Format(time.RFC3339), true
	case []string:
		parts := make([]string, 0, len(val))
		for _, s := range val {
			if s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ","), len(parts) > 0
	case []time.Time:
		parts := make([]string, 0, len(val))
		for _, t := range val {
			parts = append(parts, t.Format(time.RFC3339))
		}
		return strings.Join(parts, ","), len(parts) > 0
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := queryValue(item); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ","), len(parts) > 0
	}
	return fmt.Sprint(v), true
}

// WriteRequest is one write call.
type WriteRequest struct {
	Method string
	URI    string
	Body   any
}

// Result is the decoded answer of a write.
type Result struct {
	Message string
}

// Client talks to one remote API.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client

	log     *zap.Logger
	metrics *metrics.Collector
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key in the X-API-KEY header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.APIKey = key }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.HTTP = h }
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l.Named("client")
		}
	}
}

// WithMetrics observes request durations in m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List reads a list screen: layout, rows and paging.
func (c *Client) List(ctx context.Context, path string, q Query) (*layout.ListData, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	merged := target.Query()
	for k, v := range q.Values() {
		merged[k] = v
	}
	target.RawQuery = merged.Encode()

	body, err := c.do(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	data, err := layout.DecodeList(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	return data, nil
}

// Page reads a form screen.
func (c *Client) Page(ctx context.Context, uri string) (*layout.PageData, error) {
	target, err := c.resolve(uri)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	data, err := layout.DecodePage(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", uri, err)
	}
	return data, nil
}

// Write sends a JSON body to uri. The method defaults to POST.
func (c *Client) Write(ctx context.Context, w WriteRequest) (*Result, error) {
	target, err := c.resolve(w.URI)
	if err != nil {
		return nil, err
	}
	method := strings.ToUpper(strings.TrimSpace(w.Method))
	if method == "" {
		method = http.MethodPost
	}
	payload := w.Body
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode write body: %w", err)
	}

	body, err := c.do(ctx, method, target.String(), raw)
	if err != nil {
		return nil, err
	}
	var env envelope
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("decode write response: %w", err)
		}
	}
	return &Result{Message: env.Message}, nil
}

type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

func (c *Client) resolve(ref string) (*url.URL, error) {
	if ref == "" {
		return nil, fmt.Errorf("empty request uri")
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("parse uri %q: %w", ref, err)
	}
	if u.IsAbs() {
		return u, nil
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	full, err := url.Parse(c.BaseURL + ref)
	if err != nil {
		return nil, fmt.Errorf("parse uri %q: %w", ref, err)
	}
	return full, nil
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-KEY", c.APIKey)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.metrics.RecordAPIRequest(method, 0, time.Since(start))
		c.log.Warn("api request failed", zap.String("method", method), zap.String("url", target), zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	elapsed := time.Since(start)
	c.metrics.RecordAPIRequest(method, resp.StatusCode, elapsed)
	c.log.Debug("api request",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", elapsed),
	)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(body)}
	}
	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Success != nil && !*env.Success {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	return body, nil
}

func errorMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return truncate(strings.TrimSpace(string(body)), maxErrorBody)
}

const maxErrorBody = 200

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
