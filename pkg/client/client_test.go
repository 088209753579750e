package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/jam/pkg/cache"
)

// staticTokens hands out numbered bearer tokens and counts calls.
type staticTokens struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *staticTokens) AuthorizationHeader(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.calls++
	return fmt.Sprintf("Bearer token-%d", s.calls), nil
}

func newTestFactory(t *testing.T, serverURL string, tokens TokenSource) *Factory {
	t.Helper()

	cfg := DefaultConfig(serverURL)
	cfg.UserAgent = "jam-test/1.0"
	factory, err := NewFactory(cfg, tokens)
	if err != nil {
		t.Fatalf("NewFactory failed: %v", err)
	}
	return factory
}

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewFactory_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		tokens      TokenSource
		expectError bool
	}{
		{
			name:   "valid config",
			config: DefaultConfig("https://console.jumpcloud.com/api"),
			tokens: &staticTokens{},
		},
		{
			name:        "nil token source",
			config:      DefaultConfig("https://console.jumpcloud.com/api"),
			expectError: true,
		},
		{
			name:        "empty base url",
			config:      DefaultConfig(""),
			tokens:      &staticTokens{},
			expectError: true,
		},
		{
			name:        "zero timeout",
			config:      Config{BaseURL: "https://console.jumpcloud.com/api"},
			tokens:      &staticTokens{},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory, err := NewFactory(tt.config, tt.tokens)
			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if factory == nil {
				t.Error("Factory is nil")
			}
		})
	}
}

func TestNewFactory_NilTokenSource(t *testing.T) {
	_, err := NewFactory(DefaultConfig("https://example.com"), nil)
	if !errors.Is(err, ErrNoTokenSource) {
		t.Errorf("Expected ErrNoTokenSource, got %v", err)
	}
}

func TestBuild_DefaultHeaders(t *testing.T) {
	var received http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = r.Header.Clone()
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c, err := newTestFactory(t, server.URL, &staticTokens{}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	resp, err := c.Get(context.Background(), "/systems", nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	resp.Body.Close()

	expected := map[string]string{
		"Authorization": "Bearer token-1",
		"Accept":        "application/json",
		"Content-Type":  "application/json",
		"User-Agent":    "jam-test/1.0",
	}
	for name, want := range expected {
		if got := received.Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestBuild_FreshAuthorizationPerClient(t *testing.T) {
	var (
		mu       sync.Mutex
		received []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		received = append(received, r.Header.Get("Authorization"))
		mu.Unlock()
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	tokens := &staticTokens{}
	factory := newTestFactory(t, server.URL, tokens)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		c, err := factory.Build(ctx)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		resp, err := c.Get(ctx, "/systems", nil)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		resp.Body.Close()
	}

	if len(received) != 2 || received[0] != "Bearer token-1" || received[1] != "Bearer token-2" {
		t.Errorf("Authorization headers = %v, want one fresh token per Build", received)
	}
}

func TestBuild_TokenError(t *testing.T) {
	tokenErr := &APIError{StatusCode: 401, Class: ErrorClassAuth, Message: "invalid_client"}
	factory := newTestFactory(t, "https://example.invalid", &staticTokens{err: tokenErr})

	_, err := factory.Build(context.Background())
	if !errors.Is(err, tokenErr) {
		t.Errorf("Build error = %v, want token source error", err)
	}
}

func TestGet_PathAndQuery(t *testing.T) {
	var gotURL *url.URL
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c, err := newTestFactory(t, server.URL+"/api/", &staticTokens{}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	query := url.Values{"skip": {"100"}, "limit": {"100"}}
	resp, err := c.Get(context.Background(), "/v2/usergroups", query)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	resp.Body.Close()

	if gotURL.Path != "/api/v2/usergroups" {
		t.Errorf("Path = %q, want /api/v2/usergroups", gotURL.Path)
	}
	if gotURL.Query().Get("skip") != "100" || gotURL.Query().Get("limit") != "100" {
		t.Errorf("Query = %q, want skip=100&limit=100", gotURL.RawQuery)
	}
}

func TestDo_ErrorStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantClass   ErrorClass
		wantMessage string
	}{
		{
			name:        "not found with json message",
			status:      http.StatusNotFound,
			body:        `{"message":"Not Found"}`,
			wantClass:   ErrorClassClient,
			wantMessage: "Not Found",
		},
		{
			name:        "forbidden with error field",
			status:      http.StatusForbidden,
			body:        `{"error":"insufficient permissions"}`,
			wantClass:   ErrorClassClient,
			wantMessage: "insufficient permissions",
		},
		{
			name:        "server error without body",
			status:      http.StatusBadGateway,
			wantClass:   ErrorClassServer,
			wantMessage: "Bad Gateway",
		},
		{
			name:        "html error page",
			status:      http.StatusServiceUnavailable,
			body:        "<html>down</html>",
			wantClass:   ErrorClassServer,
			wantMessage: "Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			c, err := newTestFactory(t, server.URL, &staticTokens{}).Build(context.Background())
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}

			resp, err := c.Get(context.Background(), "/systemusers/5f1b2c3d4e5f6a7b8c9d0e1f", nil)
			if resp != nil {
				t.Error("Expected nil response on error status")
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Expected *APIError, got %v", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Class != tt.wantClass {
				t.Errorf("Class = %q, want %q", apiErr.Class, tt.wantClass)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
		})
	}
}

func TestDo_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	c, err := newTestFactory(t, serverURL, &staticTokens{}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	_, err = c.Get(context.Background(), "/systems", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.Class != ErrorClassNetwork {
		t.Errorf("Class = %q, want %q", apiErr.Class, ErrorClassNetwork)
	}
}

func TestDo_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	c, err := newTestFactory(t, server.URL, &staticTokens{}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.Get(ctx, "/systems", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestPostJSONInto(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&received)
		w.Write([]byte(`{"totalCount":1,"results":[{"_id":"abc"}]}`))
	}))
	defer server.Close()

	c, err := newTestFactory(t, server.URL, &staticTokens{}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	body := map[string]any{"searchFilter": map[string]any{"searchTerm": "a@example.com", "fields": []string{"email"}}}
	var out struct {
		TotalCount int              `json:"totalCount"`
		Results    []map[string]any `json:"results"`
	}
	if err := c.PostJSONInto(context.Background(), "/search/systemusers", body, &out); err != nil {
		t.Fatalf("PostJSONInto failed: %v", err)
	}

	if out.TotalCount != 1 || len(out.Results) != 1 {
		t.Errorf("Decoded %+v, want one result", out)
	}
	filter, _ := received["searchFilter"].(map[string]any)
	if filter["searchTerm"] != "a@example.com" {
		t.Errorf("searchTerm = %v, want a@example.com", filter["searchTerm"])
	}
}

func TestGetJSON_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	c, err := newTestFactory(t, server.URL, &staticTokens{}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var out map[string]any
	err = c.GetJSON(context.Background(), "/systems/abc", nil, &out)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Class != ErrorClassDecode {
		t.Errorf("Expected decode APIError, got %v", err)
	}
}

func TestGetJSON_Cache(t *testing.T) {
	redisClient := setupTestRedis(t)

	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{"_id":"abc","hostname":"build-01"}`))
	}))
	defer server.Close()

	cfg := DefaultConfig(server.URL)
	cfg.Cache = cache.NewManager(redisClient)
	cfg.CacheScope = "client-test"
	factory, err := NewFactory(cfg, &staticTokens{})
	if err != nil {
		t.Fatalf("NewFactory failed: %v", err)
	}

	c, err := factory.Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		var out map[string]any
		if err := c.GetJSON(context.Background(), "/systems/abc", nil, &out); err != nil {
			t.Fatalf("GetJSON #%d failed: %v", i+1, err)
		}
		if out["hostname"] != "build-01" {
			t.Errorf("hostname = %v, want build-01", out["hostname"])
		}
	}

	if requests != 1 {
		t.Errorf("Server requests = %d, want 1 (second read from cache)", requests)
	}
}

func TestEndpointLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/systemusers", "/systemusers"},
		{"/systemusers/5f1b2c3d4e5f6a7b8c9d0e1f", "/systemusers/{id}"},
		{"/v2/usergroups/5f1b2c3d4e5f6a7b8c9d0e1f/members", "/v2/usergroups/{id}/members"},
		{"/v2/systems/5f1b2c3d4e5f6a7b8c9d0e1f/fdekey", "/v2/systems/{id}/fdekey"},
		{"/search/systems", "/search/systems"},
	}

	for _, tt := range tests {
		if got := endpointLabel(tt.path); got != tt.want {
			t.Errorf("endpointLabel(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
