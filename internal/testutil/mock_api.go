// Package testutil provides testing utilities for the Mission Control client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// MockResponse defines the behavior for a canned response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// Item is a stored list item. It must carry an "id" field.
type Item = map[string]any

// MockAPI is an in-memory Mission Control API. It serves limit/offset pages
// of seeded collections, deletes items, and answers If-None-Match with 304
// while a collection is unchanged.
type MockAPI struct {
	server *httptest.Server
	mu     sync.RWMutex

	collections map[string][]Item
	revisions   map[string]int
	handlers    map[string]http.HandlerFunc
	failures    map[string][]MockResponse
	delay       time.Duration

	// Tracking
	RequestCount      int
	ConditionalCount  int
	DeleteCount       int
	LastRequestHeader http.Header
}

// NewMockAPI creates and starts a mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		collections: make(map[string][]Item),
		revisions:   make(map[string]int),
		handlers:    make(map[string]http.HandlerFunc),
		failures:    make(map[string][]MockResponse),
	}

	r := chi.NewRouter()
	r.Use(mock.track)

	r.Get("/api/v1/agents", mock.list)
	r.Delete("/api/v1/agents/{id}", mock.delete)
	r.Get("/api/v1/boards", mock.list)
	r.Delete("/api/v1/boards/{id}", mock.delete)
	r.Get("/api/v1/boards/{boardID}/tasks", mock.list)
	r.Delete("/api/v1/boards/{boardID}/tasks/{id}", mock.delete)
	r.Get("/api/v1/boards/{boardID}/approvals", mock.list)

	mock.server = httptest.NewServer(r)
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
	m.ConditionalCount = 0
	m.DeleteCount = 0
	m.LastRequestHeader = nil
}

// Seed replaces the items of the collection at path (e.g. "/api/v1/agents").
func (m *MockAPI) Seed(collection string, items ...Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = append([]Item(nil), items...)
	m.revisions[collection]++
}

// Items returns a copy of the collection at path.
func (m *MockAPI) Items(collection string) []Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Item(nil), m.collections[collection]...)
}

// SetDelay delays every response.
func (m *MockAPI) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetHandler overrides the handler for "METHOD /path".
func (m *MockAPI) SetHandler(method, path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[method+" "+path] = handler
}

// SetResponse configures a fixed response for "METHOD /path".
func (m *MockAPI) SetResponse(method, path string, resp MockResponse) {
	m.SetHandler(method, path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// FailNext queues resp for the next request to "METHOD /path". Queued
// failures are consumed in order before the normal handler runs again.
func (m *MockAPI) FailNext(method, path string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := method + " " + path
	m.failures[key] = append(m.failures[key], resp)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockAPI) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetDeleteCount returns the number of DELETE requests.
func (m *MockAPI) GetDeleteCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.DeleteCount
}

func (m *MockAPI) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		m.mu.Lock()
		m.RequestCount++
		m.LastRequestHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" {
			m.ConditionalCount++
		}
		if r.Method == http.MethodDelete {
			m.DeleteCount++
		}
		delay := m.delay

		var failure *MockResponse
		if queued := m.failures[key]; len(queued) > 0 {
			failure = &queued[0]
			m.failures[key] = queued[1:]
		}
		handler := m.handlers[key]
		m.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		switch {
		case failure != nil:
			writeResponse(w, *failure)
		case handler != nil:
			handler(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (m *MockAPI) list(w http.ResponseWriter, r *http.Request) {
	collection := r.URL.Path
	limit := intParam(r, "limit", 50)
	offset := intParam(r, "offset", 0)

	m.mu.RLock()
	items := m.collections[collection]
	etag := fmt.Sprintf(`"rev-%d"`, m.revisions[collection])
	total := len(items)
	start := min(offset, total)
	end := min(start+limit, total)
	page := append([]Item{}, items[start:end]...)
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "max-age=300")

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"items":  page,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (m *MockAPI) delete(w http.ResponseWriter, r *http.Request) {
	collection := path.Dir(r.URL.Path)
	id := chi.URLParam(r, "id")

	m.mu.Lock()
	items := m.collections[collection]
	found := false
	for i, item := range items {
		if fmt.Sprint(item["id"]) == id {
			m.collections[collection] = append(items[:i:i], items[i+1:]...)
			m.revisions[collection]++
			found = true
			break
		}
	}
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !found {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not found"}`))
		return
	}
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func intParam(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}

// NewNotModifiedResponse creates a 304 Not Modified response.
func NewNotModifiedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotModified,
		Headers: map[string]string{
			"Cache-Control": "max-age=300",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"detail": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Retry-After":  strconv.Itoa(retryAfter),
			"Content-Type": "application/json",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"detail": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// NewClientErrorResponse creates a response with a 4xx status and detail.
func NewClientErrorResponse(status int, detail string) MockResponse {
	body, _ := json.Marshal(map[string]string{"detail": detail})
	return MockResponse{
		StatusCode: status,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}
