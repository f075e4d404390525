// Package testutil provides a configurable mock exchange server for tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
)

// Response defines the behavior of one mock endpoint.
type Response struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// TradesPage is one page of a scripted trade-history sequence. CbAfter is
// sent as the Cb-After response header; leave it empty to signal the last
// page.
type TradesPage struct {
	Body    string
	CbAfter string
}

// MockExchange is a configurable mock of the exchange REST API.
type MockExchange struct {
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	pages    map[string][]TradesPage
	pageIdx  map[string]int

	requests []RecordedRequest
}

// RecordedRequest captures one request the mock received.
type RecordedRequest struct {
	Path  string
	Query url.Values
}

// NewMockExchange creates a mock exchange server.
func NewMockExchange() *MockExchange {
	mock := &MockExchange{
		handlers: make(map[string]http.HandlerFunc),
		pages:    make(map[string][]TradesPage),
		pageIdx:  make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Path:  r.URL.Path,
			Query: r.URL.Query(),
		})
		handler := mock.handlers[r.URL.Path]
		pages, paged := mock.pages[r.URL.Path]
		idx := mock.pageIdx[r.URL.Path]
		if paged && idx < len(pages) {
			mock.pageIdx[r.URL.Path] = idx + 1
		}
		mock.mu.Unlock()

		if handler != nil {
			handler(w, r)
			return
		}
		if paged {
			if idx >= len(pages) {
				http.Error(w, `{"message":"no more scripted pages"}`, http.StatusInternalServerError)
				return
			}
			page := pages[idx]
			w.Header().Set("Content-Type", "application/json")
			if page.CbAfter != "" {
				w.Header().Set("Cb-After", page.CbAfter)
			}
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, page.Body)
			return
		}

		http.NotFound(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockExchange) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockExchange) Close() {
	m.server.Close()
}

// SetHandler sets a custom handler for a path.
func (m *MockExchange) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockExchange) SetResponse(path string, resp Response) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		if resp.Body != "" {
			fmt.Fprint(w, resp.Body)
		}
	})
}

// SetTradesPages scripts the paginated trade history of a product. Pages
// are served in order, one per request.
func (m *MockExchange) SetTradesPages(productID string, pages []TradesPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := fmt.Sprintf("/products/%s/trades", productID)
	m.pages[path] = pages
	m.pageIdx[path] = 0
}

// Requests returns a copy of all recorded requests.
func (m *MockExchange) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns the number of requests received.
func (m *MockExchange) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// RequestsTo returns the recorded requests for one path.
func (m *MockExchange) RequestsTo(path string) []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RecordedRequest
	for _, req := range m.requests {
		if req.Path == path {
			out = append(out, req)
		}
	}
	return out
}

// Reset clears recorded requests and rewinds scripted pages.
func (m *MockExchange) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	for path := range m.pageIdx {
		m.pageIdx[path] = 0
	}
}
