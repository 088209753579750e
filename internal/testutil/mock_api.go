// Package testutil provides a mock JumpCloud API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines a canned response for one path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock JumpCloud server. Unconfigured paths answer
// 404 with a JumpCloud-style error body.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	prefixes map[string]http.HandlerFunc

	// Tracking
	RequestCount      int
	TokenCount        int
	LastRequestHeader http.Header
	requests          map[string][]string
}

// NewMockAPI creates and starts a mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]http.HandlerFunc),
		prefixes: make(map[string]http.HandlerFunc),
		requests: make(map[string][]string),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.requests[r.URL.Path] = append(mock.requests[r.URL.Path], r.URL.RawQuery)
		handler, ok := mock.handlers[r.URL.Path]
		if !ok {
			for prefix, h := range mock.prefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					handler, ok = h, true
					break
				}
			}
		}
		mock.mu.Unlock()

		if ok {
			handler(w, r)
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.TokenCount = 0
	m.LastRequestHeader = nil
	m.requests = make(map[string][]string)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetPrefixHandler sets a handler for every path below prefix.
func (m *MockAPI) SetPrefixHandler(prefix string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefixes[prefix] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetTokenCount returns the number of token exchanges served.
func (m *MockAPI) GetTokenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.TokenCount
}

// Queries returns the raw query strings received for path, in arrival order.
func (m *MockAPI) Queries(path string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.requests[path]...)
}

// SetTokenEndpoint serves client-credentials exchanges at path, issuing
// token-1, token-2, ... valid for ttl.
func (m *MockAPI) SetTokenEndpoint(path string, ttl time.Duration) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); !ok || r.Method != http.MethodPost {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
			return
		}

		m.mu.Lock()
		m.TokenCount++
		n := m.TokenCount
		m.mu.Unlock()

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": fmt.Sprintf("token-%d", n),
			"expires_in":   int(ttl.Seconds()),
			"token_type":   "bearer",
		})
	})
}

// SetBodyPaginated serves records at path in skip/limit windows using the
// {"totalCount": N, "results": [...]} envelope.
func (m *MockAPI) SetBodyPaginated(path string, records []map[string]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		page := window(r, records)
		writeJSON(w, http.StatusOK, map[string]any{
			"totalCount": len(records),
			"results":    page,
		})
	})
}

// SetHeaderPaginated serves records at path in skip/limit windows as a bare
// array with the x-total-count header.
func (m *MockAPI) SetHeaderPaginated(path string, records []map[string]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-total-count", strconv.Itoa(len(records)))
		writeJSON(w, http.StatusOK, window(r, records))
	})
}

// SetEntities serves GET prefix/<id> from records keyed by "_id" (or "id").
func (m *MockAPI) SetEntities(prefix string, records []map[string]any) {
	byID := make(map[string]map[string]any, len(records))
	for _, rec := range records {
		byID[RecordID(rec)] = rec
	}

	prefix = strings.TrimRight(prefix, "/") + "/"
	m.SetPrefixHandler(prefix, func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, prefix)
		rec, ok := byID[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})
}

// NewRecords builds n records with unique 24-hex "_id" values.
func NewRecords(n int, fields func(i int) map[string]any) []map[string]any {
	records := make([]map[string]any, n)
	for i := range records {
		rec := map[string]any{}
		if fields != nil {
			rec = fields(i)
		}
		rec["_id"] = fmt.Sprintf("%024x", i+1)
		records[i] = rec
	}
	return records
}

// RecordID returns the "_id" or "id" of a record.
func RecordID(rec map[string]any) string {
	if id, ok := rec["_id"].(string); ok {
		return id
	}
	id, _ := rec["id"].(string)
	return id
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// window slices records by the skip and limit query parameters.
func window(r *http.Request, records []map[string]any) []map[string]any {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = len(records)
	}

	if skip >= len(records) {
		return []map[string]any{}
	}
	end := min(skip+limit, len(records))
	return records[skip:end]
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
