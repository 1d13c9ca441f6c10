// Package integration provides a reusable test harness for end-to-end
// testing of the tessera server. It starts a full HTTP server with mock
// upstream services and a test JWT issuer.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stackpal/tessera/internal/action"
	"github.com/stackpal/tessera/internal/capability"
	"github.com/stackpal/tessera/internal/config"
	"github.com/stackpal/tessera/internal/definition"
	"github.com/stackpal/tessera/internal/metadata"
	"github.com/stackpal/tessera/internal/query"
	"github.com/stackpal/tessera/internal/source"
	"github.com/stackpal/tessera/internal/transport"
)

// TestHarness encapsulates a fully wired tessera instance with mock
// upstream services for integration testing.
type TestHarness struct {
	t      *testing.T
	server *httptest.Server
	issuer *tokenIssuer

	Registry *definition.Registry

	backends map[string]*MockBackend
	cfg      *config.Config
}

// HarnessOption configures the test harness.
type HarnessOption func(*harnessConfig)

type harnessConfig struct {
	definitionDirs []string
	services       []string
	serviceTimeout time.Duration
	breaker        config.CircuitBreakerConfig
	dispatchers    map[string]*action.Dispatcher
	roles          map[string][]string
}

// WithDefinitions sets the definition directories to load. Relative paths
// are resolved from the testdata directory.
func WithDefinitions(dirs ...string) HarnessOption {
	return func(c *harnessConfig) {
		c.definitionDirs = dirs
	}
}

// WithService registers a mock upstream service under the given ID.
func WithService(serviceID string) HarnessOption {
	return func(c *harnessConfig) {
		c.services = append(c.services, serviceID)
	}
}

// WithServiceTimeout sets the per-request timeout for upstream calls.
func WithServiceTimeout(d time.Duration) HarnessOption {
	return func(c *harnessConfig) {
		c.serviceTimeout = d
	}
}

// WithCircuitBreaker sets the circuit breaker configuration for all mock
// upstream services.
func WithCircuitBreaker(cb config.CircuitBreakerConfig) HarnessOption {
	return func(c *harnessConfig) {
		c.breaker = cb
	}
}

// WithDispatcher registers a programmatic action dispatcher for a dataset.
func WithDispatcher(datasetID string, d *action.Dispatcher) HarnessOption {
	return func(c *harnessConfig) {
		if c.dispatchers == nil {
			c.dispatchers = make(map[string]*action.Dispatcher)
		}
		c.dispatchers[datasetID] = d
	}
}

// WithRoles overrides the role-to-capability mapping.
func WithRoles(roles map[string][]string) HarnessOption {
	return func(c *harnessConfig) {
		c.roles = roles
	}
}

// NewTestHarness creates and starts a full tessera test instance. The
// server is automatically cleaned up when the test completes.
func NewTestHarness(t *testing.T, opts ...HarnessOption) *TestHarness {
	t.Helper()

	hc := &harnessConfig{
		serviceTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(hc)
	}

	if len(hc.definitionDirs) == 0 {
		hc.definitionDirs = []string{filepath.Join(testdataDir(), "definitions")}
	}
	if len(hc.services) == 0 {
		hc.services = []string{"orders-svc"}
	}
	if hc.roles == nil {
		hc.roles = map[string][]string{
			"orders_admin":  {"orders:*"},
			"orders_viewer": {"orders:view"},
		}
	}

	h := &TestHarness{
		t:        t,
		backends: make(map[string]*MockBackend),
	}

	// Mock backends first so service configs can point at their URLs.
	for _, id := range hc.services {
		h.backends[id] = newMockBackend(t, id)
	}

	loader := definition.NewLoader()
	defs, err := loader.LoadAll(hc.definitionDirs)
	if err != nil {
		t.Fatalf("load definitions: %v", err)
	}
	validator := definition.NewValidator()
	if verrs := validator.Validate(defs); len(verrs) > 0 {
		t.Fatalf("definition validation: %v", verrs)
	}
	h.Registry, err = definition.NewRegistry(defs)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	h.issuer = newTokenIssuer()

	serviceConfigs := make(map[string]config.ServiceConfig, len(h.backends))
	sources := make(map[string]*source.Client, len(h.backends))
	for id, mb := range h.backends {
		svc := config.ServiceConfig{
			BaseURL:        mb.URL(),
			Timeout:        hc.serviceTimeout,
			CircuitBreaker: hc.breaker,
		}
		serviceConfigs[id] = svc
		sources[id] = source.NewClient(svc, nil)
	}

	h.cfg = config.Defaults()
	h.cfg.Identity = config.IdentityConfig{
		Enabled: true,
		Issuer:  h.issuer.Issuer(),
		Secret:  h.issuer.Secret(),
	}
	h.cfg.Services = serviceConfigs
	h.cfg.Capability = config.CapabilityConfig{Roles: hc.roles}
	h.cfg.Observability.Metrics.Enabled = false

	router := transport.NewRouter(transport.Dependencies{
		Config:             h.cfg,
		Registry:           h.Registry,
		Engine:             query.NewEngine(),
		Tables:             metadata.NewTableProvider(h.Registry),
		Forms:              metadata.NewFormProvider(h.Registry),
		Sources:            sources,
		Dispatchers:        hc.dispatchers,
		CapabilityResolver: capability.NewStaticResolver(hc.roles),
	})

	h.server = httptest.NewServer(router)
	t.Cleanup(h.server.Close)

	return h
}

// BaseURL returns the test server's base URL.
func (h *TestHarness) BaseURL() string {
	return h.server.URL
}

// MockBackend returns the mock backend for the given service ID.
func (h *TestHarness) MockBackend(serviceID string) *MockBackend {
	mb, ok := h.backends[serviceID]
	if !ok {
		h.t.Fatalf("mock backend %q not configured", serviceID)
	}
	return mb
}

// GenerateToken creates a valid JWT token with the given claims.
func (h *TestHarness) GenerateToken(claims TestClaims) string {
	return h.issuer.GenerateToken(h.t, claims)
}

// GenerateExpiredToken creates a JWT that has already expired.
func (h *TestHarness) GenerateExpiredToken(claims TestClaims) string {
	return h.issuer.GenerateExpiredToken(h.t, claims)
}

// --- HTTP client helpers ---

// GET performs an authenticated GET request.
func (h *TestHarness) GET(path, token string) *http.Response {
	h.t.Helper()
	return h.doRequest("GET", path, nil, token)
}

// POST performs an authenticated POST request with a JSON body.
func (h *TestHarness) POST(path string, body any, token string) *http.Response {
	h.t.Helper()
	return h.doRequest("POST", path, body, token)
}

func (h *TestHarness) doRequest(method, path string, body any, token string) *http.Response {
	h.t.Helper()

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal request body: %v", err)
		}
		bodyReader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(context.Background(), method, h.server.URL+path, bodyReader)
	if err != nil {
		h.t.Fatalf("create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

// ParseJSON reads the response body and unmarshals it into the target.
func (h *TestHarness) ParseJSON(resp *http.Response, target any) {
	h.t.Helper()
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		h.t.Fatalf("read response body: %v", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		h.t.Fatalf("unmarshal response body: %v\nbody: %s", err, string(data))
	}
}

// AssertStatus checks that the response has the expected status code.
func (h *TestHarness) AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Errorf("status = %d, want %d\nbody: %s", resp.StatusCode, expected, string(body))
	}
}

// AssertJSON checks the response status and parses the body.
func (h *TestHarness) AssertJSON(t *testing.T, resp *http.Response, expected int, target any) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("status = %d, want %d\nbody: %s", resp.StatusCode, expected, string(body))
	}
	h.ParseJSON(resp, target)
}

// --- Default test claims ---

// AdminClaims returns TestClaims for an orders_admin user.
func AdminClaims() TestClaims {
	return TestClaims{
		SubjectID: "user-admin",
		TenantID:  "acme-corp",
		Email:     "admin@acme.example.com",
		Roles:     []string{"orders_admin"},
	}
}

// ViewerClaims returns TestClaims for an orders_viewer user.
func ViewerClaims() TestClaims {
	return TestClaims{
		SubjectID: "user-viewer",
		TenantID:  "acme-corp",
		Email:     "viewer@acme.example.com",
		Roles:     []string{"orders_viewer"},
	}
}

// --- Helpers ---

// testdataDir returns the absolute path to the testdata directory.
func testdataDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "testdata")
}

// OrderFixture returns a record map for mock upstream responses.
func OrderFixture(id, customer, status string) map[string]any {
	return map[string]any{
		"id":       id,
		"customer": customer,
		"status":   status,
		"total":    99.99,
		"placed":   "2026-01-15T10:30:00Z",
	}
}

// ListFixture returns a paginated upstream list response.
func ListFixture(items []map[string]any, total int) map[string]any {
	return map[string]any{
		"items": items,
		"meta":  map[string]any{"total": total},
	}
}

// FormatJSON converts a value to indented JSON for test output.
func FormatJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
