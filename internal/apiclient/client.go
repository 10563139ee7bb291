// Package apiclient talks to the Westgate backend REST API on behalf of the console.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/westgate-schools/admin-console/internal/nav"
	"github.com/westgate-schools/admin-console/internal/service"
	"github.com/westgate-schools/admin-console/internal/tokenstore"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
	"github.com/westgate-schools/admin-console/pkg/middleware/requestid"
)

const apiPrefix = "/api"

// Config describes the backend and the console area that owns the session.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	AdminPrefix string
	LoginPath   string
}

// Request is a logical call against one backend endpoint.
type Request struct {
	Endpoint    string
	Method      string
	Body        interface{}
	Query       url.Values
	RequireAuth bool
}

// ErrorReporter receives failures that are not the backend's fault.
type ErrorReporter func(ctx context.Context, err error)

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records every backend call.
func WithMetrics(m *service.MetricsService) Option {
	return func(c *Client) { c.metrics = m }
}

// WithErrorReporter forwards transport failures, e.g. to sentry.
func WithErrorReporter(r ErrorReporter) Option {
	return func(c *Client) { c.report = r }
}

// Client builds backend URLs, attaches the bearer token and normalises errors.
type Client struct {
	cfg     Config
	http    *http.Client
	tokens  tokenstore.Store
	logger  *zap.Logger
	metrics *service.MetricsService
	report  ErrorReporter

	mu        sync.RWMutex
	onExpired []func()
}

// New constructs a Client.
func New(cfg Config, tokens tokenstore.Store, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/admin/login"
	}
	if cfg.AdminPrefix == "" {
		cfg.AdminPrefix = "/admin"
	}
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		tokens: tokens,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tokens exposes the token store backing the client.
func (c *Client) Tokens() tokenstore.Store {
	return c.tokens
}

// LoginPath is where expired sessions are sent.
func (c *Client) LoginPath() string {
	return c.cfg.LoginPath
}

// OnSessionExpired registers fn to run whenever an authenticated call gets a 401.
func (c *Client) OnSessionExpired(fn func()) {
	c.mu.Lock()
	c.onExpired = append(c.onExpired, fn)
	c.mu.Unlock()
}

// Do performs a JSON request and decodes a successful body into out.
func (c *Client) Do(ctx context.Context, req Request, out interface{}) error {
	var body io.Reader
	contentType := ""
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode request body")
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	return c.send(ctx, method, req.Endpoint, req.Query, body, contentType, req.RequireAuth, out)
}

// URL returns the absolute backend URL for endpoint.
func (c *Client) URL(endpoint string, query url.Values) string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	path := "/" + strings.TrimLeft(endpoint, "/")

	hasPrefix := path == apiPrefix || strings.HasPrefix(path, apiPrefix+"/")
	switch {
	case strings.HasSuffix(base, apiPrefix) && hasPrefix:
		path = strings.TrimPrefix(path, apiPrefix)
	case !strings.HasSuffix(base, apiPrefix) && !hasPrefix:
		path = apiPrefix + path
	}

	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) send(ctx context.Context, method, endpoint string, query url.Values, body io.Reader, contentType string, requireAuth bool, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.URL(endpoint, query), body)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if id := requestid.FromContext(ctx); id != "" {
		httpReq.Header.Set(requestid.Header, id)
	}

	if requireAuth {
		token, ok, err := c.tokens.Get(ctx)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "read session token")
		}
		if !ok {
			return appErrors.Clone(appErrors.ErrSessionRequired, "")
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.ObserveBackendCall(endpoint, method, 0, time.Since(start))
		c.logger.Warn("backend request failed", zap.String("method", method), zap.String("endpoint", endpoint), zap.Error(err))
		if c.report != nil && ctx.Err() == nil {
			c.report(ctx, err)
		}
		return appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, appErrors.ErrTransport.Message)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	c.metrics.ObserveBackendCall(endpoint, method, resp.StatusCode, time.Since(start))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "read response body")
	}

	if resp.StatusCode == http.StatusUnauthorized && requireAuth {
		return c.expire(ctx)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return upstreamError(resp, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		if c.report != nil {
			c.report(ctx, fmt.Errorf("decode %s %s: %w", method, endpoint, err))
		}
		return appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "malformed response from server")
	}
	return nil
}

// expire clears the token, redirects admin locations to the login page and
// fails the call.
func (c *Client) expire(ctx context.Context) error {
	if err := c.tokens.Remove(ctx); err != nil {
		c.logger.Error("failed to clear expired token", zap.Error(err))
	}
	c.metrics.ObserveSessionExpired()

	if nav.Within(ctx, c.cfg.AdminPrefix) {
		nav.Redirect(ctx, c.cfg.LoginPath)
	}

	c.mu.RLock()
	hooks := append([]func(){}, c.onExpired...)
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}

	c.logger.Info("admin session expired", zap.String("location", nav.Location(ctx)))
	return appErrors.Clone(appErrors.ErrAuthExpired, "")
}

func upstreamError(resp *http.Response, raw []byte) error {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	message := ""
	if err := json.Unmarshal(raw, &body); err == nil {
		message = body.Message
		if message == "" {
			message = body.Error
		}
	}
	if message == "" {
		message = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, statusText(resp))
	}

	base := appErrors.ErrUpstream
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		base = appErrors.ErrValidation
	case http.StatusUnauthorized:
		base = appErrors.ErrUnauthorized
	case http.StatusNotFound:
		base = appErrors.ErrNotFound
	case http.StatusConflict:
		base = appErrors.ErrConflict
	}
	appErr := appErrors.Clone(base, message)
	if resp.StatusCode < 500 {
		appErr.Status = resp.StatusCode
	}
	return appErr
}

func statusText(resp *http.Response) string {
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprintf("%d", resp.StatusCode))); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

func listQuery(page, limit int, pairs ...string) url.Values {
	q := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		if v := strings.TrimSpace(pairs[i+1]); v != "" && v != "all" {
			q.Set(pairs[i], v)
		}
	}
	if page > 0 {
		q.Set("page", fmt.Sprintf("%d", page))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	return q
}
