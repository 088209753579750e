// Package client provides the authenticated JumpCloud HTTP client and the
// factory that builds one per logical operation.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/jam/pkg/cache"
	"github.com/Sternrassler/jam/pkg/logging"
	"github.com/Sternrassler/jam/pkg/metrics"
)

// Prometheus metrics for API requests.
var (
	requestsTotal = metrics.Factory.NewCounterVec(prometheus.CounterOpts{
		Name: "jam_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = metrics.Factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jam_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = metrics.Factory.NewCounterVec(prometheus.CounterOpts{
		Name: "jam_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// maxErrorBody bounds how much of a failed response is read for the message.
const maxErrorBody = 4 << 10

// objectID matches JumpCloud object ids in request paths.
var objectID = regexp.MustCompile(`/[0-9a-f]{24}\b`)

// TokenSource yields the Authorization header value for new clients.
type TokenSource interface {
	AuthorizationHeader(ctx context.Context) (string, error)
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API, e.g. "https://console.jumpcloud.com/api"
	BaseURL string

	// Timeout applies to every single request
	Timeout time.Duration

	// UserAgent sent with every request
	UserAgent string

	// Cache enables read-through caching of GetJSON responses. Optional.
	Cache *cache.Manager

	// CacheTTL is how long cached responses stay fresh
	CacheTTL time.Duration

	// CacheScope isolates cache entries per tenant, normally the client id
	CacheScope string
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		Timeout:   30 * time.Second,
		UserAgent: "jam",
		CacheTTL:  5 * time.Minute,
	}
}

// Factory builds authenticated clients. The underlying transport is shared so
// connections are reused, but every Client carries the Authorization header
// that was current when it was built.
type Factory struct {
	config     Config
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewFactory creates a client factory.
func NewFactory(cfg Config, tokens TokenSource) (*Factory, error) {
	if tokens == nil {
		return nil, ErrNoTokenSource
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}

	return &Factory{
		config:     cfg,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logging.NewLogger("client"),
	}, nil
}

// Build returns a Client carrying the current Authorization header. The token
// source refreshes an expired token before the header is returned.
func (f *Factory) Build(ctx context.Context) (*Client, error) {
	authorization, err := f.tokens.AuthorizationHeader(ctx)
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	header.Set("Authorization", authorization)
	header.Set("Accept", "application/json")
	header.Set("Content-Type", "application/json")
	if f.config.UserAgent != "" {
		header.Set("User-Agent", f.config.UserAgent)
	}

	return &Client{
		httpClient: f.httpClient,
		baseURL:    f.baseURL,
		header:     header,
		cache:      f.config.Cache,
		cacheTTL:   f.config.CacheTTL,
		cacheScope: f.config.CacheScope,
		logger:     f.logger,
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (f *Factory) SetHTTPClient(client *http.Client) {
	f.httpClient = client
}

// Client is an authenticated API client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	header     http.Header
	cache      *cache.Manager
	cacheTTL   time.Duration
	cacheScope string
	logger     zerolog.Logger
}

// Do sends req with the client's default headers. Any non-2xx response is
// returned as an *APIError with its body already closed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	endpoint := endpointLabel(req.URL.Path)
	for name, values := range c.header {
		if req.Header.Get(name) == "" {
			req.Header[name] = values
		}
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("endpoint", req.URL.Path).
		Str("query", req.URL.RawQuery).
		Msg("Executing API request")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())

	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			requestsTotal.WithLabelValues(endpoint, "canceled").Inc()
			return nil, ctxErr
		}
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", req.URL.Path).Msg("HTTP request failed")
		return nil, &APIError{
			Class:    ErrorClassNetwork,
			Method:   req.Method,
			Endpoint: req.URL.Path,
			Message:  "request failed",
			Err:      err,
		}
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	if IsSuccess(resp.StatusCode) {
		return resp, nil
	}

	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Class:      ClassifyStatus(resp.StatusCode),
		Method:     req.Method,
		Endpoint:   req.URL.Path,
		Message:    errorMessage(resp, body),
	}
	errorsTotal.WithLabelValues(string(apiErr.Class)).Inc()

	c.logger.Warn().
		Str("endpoint", req.URL.Path).
		Int("status_code", resp.StatusCode).
		Str("error_class", string(apiErr.Class)).
		Msg("API request error")

	return nil, apiErr
}

// Get performs a GET request against path relative to the base URL.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path, query), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.Do(req)
}

// PostJSON performs a POST request with body encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path, nil), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.Do(req)
}

// GetJSON performs a GET request and decodes the response into out. When a
// response cache is configured the body is served from and stored in it.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	if c.cache == nil {
		resp, err := c.Get(ctx, path, query)
		if err != nil {
			return err
		}
		return DecodeJSON(resp, out)
	}

	key := cache.Key{Scope: c.cacheScope, Endpoint: path, Query: query}
	entry, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		c.logger.Debug().Str("endpoint", path).Msg("Serving response from cache")
		return decodeBody(path, entry.Data, out)
	case !errors.Is(err, cache.ErrCacheMiss):
		c.logger.Warn().Err(err).Str("endpoint", path).Msg("Cache get error")
	}

	resp, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Class: ErrorClassNetwork, Endpoint: path, Message: "read response body", Err: err}
	}
	if err := decodeBody(path, body, out); err != nil {
		return err
	}

	if err := c.cache.Set(ctx, key, cache.NewEntry(body, resp.StatusCode, c.cacheTTL)); err != nil {
		c.logger.Warn().Err(err).Str("endpoint", path).Msg("Failed to cache response")
	}
	return nil
}

// PostJSONInto performs a POST request and decodes the response into out.
func (c *Client) PostJSONInto(ctx context.Context, path string, body, out any) error {
	resp, err := c.PostJSON(ctx, path, body)
	if err != nil {
		return err
	}
	return DecodeJSON(resp, out)
}

// DecodeJSON decodes a successful response body into out and closes it.
func DecodeJSON(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassDecode,
			Endpoint:   requestPath(resp),
			Message:    "decode response body",
			Err:        err,
		}
	}
	return nil
}

func decodeBody(path string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Class: ErrorClassDecode, Endpoint: path, Message: "decode response body", Err: err}
	}
	return nil
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func requestPath(resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	return resp.Request.URL.Path
}

// errorMessage extracts the API's error text, falling back to the status line.
func errorMessage(resp *http.Response, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "<") {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// endpointLabel collapses object ids so metric labels stay bounded.
func endpointLabel(path string) string {
	return objectID.ReplaceAllString(path, "/{id}")
}
