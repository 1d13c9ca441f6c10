package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

// MockBackend is a configurable HTTP test server that simulates an upstream
// record service. Responses are configured per path and all received
// requests are recorded for later assertion.
type MockBackend struct {
	t         *testing.T
	serviceID string
	server    *httptest.Server

	mu         sync.RWMutex
	paths      map[string]*pathConfig
	receivedBy map[string][]*RecordedRequest
}

// RecordedRequest captures the details of a request received by the mock.
type RecordedRequest struct {
	Method      string
	Path        string
	QueryParams url.Values
	Headers     http.Header
	ReceivedAt  time.Time
}

type pathConfig struct {
	mu        sync.Mutex
	responses []*mockResponse
	current   int
}

type mockResponse struct {
	status    int
	body      any
	delay     time.Duration
	connError bool
}

// PathMock is a builder for configuring mock responses for one path.
type PathMock struct {
	backend *MockBackend
	path    string
}

func newMockBackend(t *testing.T, serviceID string) *MockBackend {
	t.Helper()

	mb := &MockBackend{
		t:          t,
		serviceID:  serviceID,
		paths:      make(map[string]*pathConfig),
		receivedBy: make(map[string][]*RecordedRequest),
	}

	mb.server = httptest.NewServer(http.HandlerFunc(mb.handle))
	t.Cleanup(mb.server.Close)

	return mb
}

// URL returns the base URL of the mock backend server.
func (mb *MockBackend) URL() string {
	return mb.server.URL
}

// OnPath returns a builder for configuring responses for the given path.
func (mb *MockBackend) OnPath(path string) *PathMock {
	return &PathMock{backend: mb, path: path}
}

// RespondWith queues a response with the given status and body.
func (pm *PathMock) RespondWith(status int, body any) *PathMock {
	pm.backend.addResponse(pm.path, &mockResponse{status: status, body: body})
	return pm
}

// RespondWithDelay queues a delayed response to simulate a slow upstream.
func (pm *PathMock) RespondWithDelay(delay time.Duration, status int, body any) *PathMock {
	pm.backend.addResponse(pm.path, &mockResponse{status: status, body: body, delay: delay})
	return pm
}

// RespondWithConnectionError queues a response that closes the connection.
func (pm *PathMock) RespondWithConnectionError() *PathMock {
	pm.backend.addResponse(pm.path, &mockResponse{connError: true})
	return pm
}

func (mb *MockBackend) addResponse(path string, resp *mockResponse) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	cfg, ok := mb.paths[path]
	if !ok {
		cfg = &pathConfig{}
		mb.paths[path] = cfg
	}
	cfg.responses = append(cfg.responses, resp)
}

func (mb *MockBackend) handle(w http.ResponseWriter, r *http.Request) {
	rec := &RecordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		QueryParams: r.URL.Query(),
		Headers:     r.Header.Clone(),
		ReceivedAt:  time.Now(),
	}

	mb.mu.Lock()
	mb.receivedBy[r.URL.Path] = append(mb.receivedBy[r.URL.Path], rec)
	mb.mu.Unlock()

	resp := mb.getNextResponse(r.URL.Path)
	if resp == nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "mock: no response configured for " + r.URL.Path,
		})
		return
	}

	if resp.connError {
		hj, ok := w.(http.Hijacker)
		if ok {
			conn, _, _ := hj.Hijack()
			if conn != nil {
				conn.Close()
			}
		}
		return
	}

	if resp.delay > 0 {
		time.Sleep(resp.delay)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	if resp.body != nil {
		json.NewEncoder(w).Encode(resp.body)
	}
}

func (mb *MockBackend) getNextResponse(path string) *mockResponse {
	mb.mu.RLock()
	cfg, ok := mb.paths[path]
	mb.mu.RUnlock()
	if !ok || cfg == nil {
		return nil
	}

	cfg.mu.Lock()
	defer cfg.mu.Unlock()

	if len(cfg.responses) == 0 {
		return nil
	}

	idx := cfg.current
	if idx >= len(cfg.responses) {
		// Repeat the last response for subsequent calls.
		idx = len(cfg.responses) - 1
	} else {
		cfg.current++
	}
	return cfg.responses[idx]
}

// AssertCalled verifies the path was requested the expected number of times.
func (mb *MockBackend) AssertCalled(t *testing.T, path string, expected int) {
	t.Helper()
	mb.mu.RLock()
	actual := len(mb.receivedBy[path])
	mb.mu.RUnlock()
	if actual != expected {
		t.Errorf("mock %s: path %q called %d times, want %d", mb.serviceID, path, actual, expected)
	}
}

// LastRequest returns the last request received for the given path, or nil.
func (mb *MockBackend) LastRequest(path string) *RecordedRequest {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	reqs := mb.receivedBy[path]
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1]
}

// Reset clears all recorded requests and configured responses.
func (mb *MockBackend) Reset() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.paths = make(map[string]*pathConfig)
	mb.receivedBy = make(map[string][]*RecordedRequest)
}
