package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/stackpal/tessera/internal/action"
	"github.com/stackpal/tessera/internal/capability"
	"github.com/stackpal/tessera/internal/config"
	"github.com/stackpal/tessera/internal/definition"
	"github.com/stackpal/tessera/internal/metadata"
	"github.com/stackpal/tessera/internal/query"
	"github.com/stackpal/tessera/model"
)

func testDefinitions() []model.DatasetDefinition {
	return []model.DatasetDefinition{
		{
			Dataset: "orders",
			Version: "1",
			Title:   "Orders",
			Fields: []model.FieldDefinition{
				{Key: "id", Label: "ID", Type: "text"},
				{Key: "customer", Label: "Customer", Type: "text", Sortable: true, Searchable: true},
				{Key: "status", Label: "Status", Type: "select", Filterable: true,
					Options: []model.StaticOption{
						{Value: "open", Label: "Open"},
						{Value: "shipped", Label: "Shipped"},
					}},
			},
			Actions: []model.ActionDefinition{
				{Key: "ship", Label: "Ship", Type: "command"},
				{Key: "open", Label: "Open", Type: "navigate", NavigateTo: "/orders/{id}"},
			},
			Forms: []model.FormDefinition{
				{
					ID:    "order-note",
					Title: "Add note",
					Sections: []model.SectionDefinition{
						{Key: "main", Title: "Note", Fields: []model.FormFieldDefinition{
							{Key: "note", Label: "Note", Type: "text", Required: true},
						}},
					},
				},
			},
		},
		{
			Dataset:      "audit",
			Version:      "1",
			Title:        "Audit log",
			Capabilities: []string{"audit:view"},
			Fields: []model.FieldDefinition{
				{Key: "id", Label: "ID", Type: "text"},
			},
		},
	}
}

func testRouter(t *testing.T, mutate func(*Dependencies)) http.Handler {
	t.Helper()

	registry, err := definition.NewRegistry(testDefinitions())
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.Identity.Enabled = false

	deps := Dependencies{
		Config:   cfg,
		Registry: registry,
		Engine:   query.NewEngine(),
		Tables:   metadata.NewTableProvider(registry),
		Forms:    metadata.NewFormProvider(registry),
		CapabilityResolver: capability.NewStaticResolver(map[string][]string{
			"auditor": {"audit:view"},
		}),
	}
	if mutate != nil {
		mutate(&deps)
	}
	return NewRouter(deps)
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthAndReady(t *testing.T) {
	h := testRouter(t, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ui/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ui/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterWarnsOnUnhandledCommandActions(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	testRouter(t, func(d *Dependencies) {
		d.Logger = zap.New(core)
	})

	entries := logs.FilterMessage("command action has no registered handler").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "orders", entries[0].ContextMap()["dataset"])
	assert.Equal(t, "ship", entries[0].ContextMap()["action"])
}

func TestRouterRegisteredDispatcherSilencesWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	testRouter(t, func(d *Dependencies) {
		d.Logger = zap.New(core)
		d.Dispatchers = map[string]*action.Dispatcher{
			"orders": action.NewDispatcher([]action.Action{
				{Key: "ship", Label: "Ship", Handler: func(context.Context, model.Record) error { return nil }},
			}),
		}
	})

	assert.Empty(t, logs.FilterMessage("command action has no registered handler").All())
}

func TestGetTable(t *testing.T) {
	h := testRouter(t, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ui/datasets/orders", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var desc model.TableDescriptor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &desc))
	assert.Equal(t, "orders", desc.Dataset)
	assert.Len(t, desc.Columns, 3)
	assert.Len(t, desc.Filters, 1)
	assert.Equal(t, "status", desc.Filters[0].Field)
}

func TestGetTableUnknownDataset(t *testing.T) {
	h := testRouter(t, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ui/datasets/ghost", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTableForbiddenWithoutCapability(t *testing.T) {
	h := testRouter(t, nil)

	// Identity disabled, so no roles and no capabilities are resolved.
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ui/datasets/audit", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestQueryLocalEvaluation(t *testing.T) {
	h := testRouter(t, nil)

	w := postJSON(t, h, "/ui/datasets/orders/query", queryRequest{
		State: model.QueryState{
			Filters:  map[string]model.FilterValue{"status": {"open"}},
			SortKey:  "customer",
			Page:     1,
			PageSize: 10,
		},
		Records: []model.Record{
			{"id": model.Text("1"), "customer": model.Text("Zoe"), "status": model.Text("open")},
			{"id": model.Text("2"), "customer": model.Text("Ann"), "status": model.Text("shipped")},
			{"id": model.Text("3"), "customer": model.Text("Bob"), "status": model.Text("open")},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result model.QueryResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Items, 2)
	assert.Equal(t, "3", result.Items[0].ID())
	assert.Equal(t, "1", result.Items[1].ID())
	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, 1, result.TotalPages)
}

func TestQueryWithoutRecordsOrSource(t *testing.T) {
	h := testRouter(t, nil)

	w := postJSON(t, h, "/ui/datasets/orders/query", queryRequest{
		State: model.QueryState{Page: 1, PageSize: 10},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result model.QueryResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Empty(t, result.Items)
	assert.Equal(t, 0, result.TotalCount)
}

func TestDispatchAction(t *testing.T) {
	shipped := 0
	h := testRouter(t, func(deps *Dependencies) {
		deps.Dispatchers = map[string]*action.Dispatcher{
			"orders": action.NewDispatcher([]action.Action{
				{Key: "ship", Label: "Ship", Handler: func(_ context.Context, rec model.Record) error {
					shipped++
					assert.Equal(t, "1", rec.ID())
					return nil
				}},
			}),
		}
	})

	w := postJSON(t, h, "/ui/datasets/orders/actions/ship", actionRequest{
		Record: model.Record{"id": model.Text("1")},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, shipped)
}

func TestDispatchUnknownAction(t *testing.T) {
	h := testRouter(t, nil)

	w := postJSON(t, h, "/ui/datasets/orders/actions/ghost", actionRequest{})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDispatchNavigateAction(t *testing.T) {
	h := testRouter(t, nil)

	w := postJSON(t, h, "/ui/datasets/orders/actions/open", actionRequest{
		Record: model.Record{"id": model.Text("1")},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "/orders/{id}", resp["navigate_to"])
}

func TestGetForm(t *testing.T) {
	h := testRouter(t, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ui/forms/order-note", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var desc model.FormDescriptor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &desc))
	assert.Equal(t, "order-note", desc.ID)
	require.Len(t, desc.Sections, 1)
	assert.Equal(t, "note", desc.Sections[0].Fields[0].Key)
}

func TestValidateForm(t *testing.T) {
	h := testRouter(t, nil)

	w := postJSON(t, h, "/ui/forms/order-note/validate", validateRequest{
		Draft: model.Record{"note": model.Text("handle with care")},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, h, "/ui/forms/order-note/validate", validateRequest{
		Draft: model.Record{},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp struct {
		Error *model.ErrorEnvelope `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, model.ErrValidationError, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "note", resp.Error.Details[0].Field)
	assert.Equal(t, "Note is required", resp.Error.Details[0].Message)
}

func TestJWTAuthentication(t *testing.T) {
	registry, err := definition.NewRegistry(testDefinitions())
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.Identity.Issuer = "https://id.example.com"
	cfg.Identity.Secret = "test-secret"

	h := NewRouter(Dependencies{
		Config:   cfg,
		Registry: registry,
		Engine:   query.NewEngine(),
		Tables:   metadata.NewTableProvider(registry),
		Forms:    metadata.NewFormProvider(registry),
		CapabilityResolver: capability.NewStaticResolver(map[string][]string{
			"auditor": {"audit:view"},
		}),
	})

	// No token.
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ui/datasets", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token carrying the auditor role.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-1",
		"iss":   "https://id.example.com",
		"roles": []string{"auditor"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ui/datasets/audit", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Expired token.
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"iss": "https://id.example.com",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signedExpired, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/ui/datasets", nil)
	req.Header.Set("Authorization", "Bearer "+signedExpired)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCorrelationIDHeader(t *testing.T) {
	h := testRouter(t, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ui/health", nil))
	assert.NotEmpty(t, w.Header().Get("X-Correlation-Id"))

	req := httptest.NewRequest(http.MethodGet, "/ui/health", nil)
	req.Header.Set("X-Correlation-Id", "corr-123")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "corr-123", w.Header().Get("X-Correlation-Id"))
}
