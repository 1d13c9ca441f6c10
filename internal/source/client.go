// Package source fetches records from upstream list endpoints for datasets
// whose definitions bind a service. It maps query state onto conventional
// REST list parameters and normalizes responses into records.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stackpal/tessera/internal/config"
	"github.com/stackpal/tessera/internal/observability"
	"github.com/stackpal/tessera/model"
)

// FetchResult is one upstream page of records plus the server-side total.
type FetchResult struct {
	Records []model.Record
	Total   int
}

// Instrumentation receives upstream call telemetry. The observability
// metrics set implements it.
type Instrumentation interface {
	RecordUpstreamRequest(serviceID string, status int, duration time.Duration)
	SetUpstreamCircuitBreakerState(serviceID string, state float64)
	RecordUpstreamTokenRefresh(serviceID string)
}

// Client calls one upstream service's list endpoints. Safe for concurrent
// use.
type Client struct {
	baseURL   string
	client    *http.Client
	tokens    TokenSource
	breaker   *circuitBreaker
	serviceID string
	instr     Instrumentation
}

// NewClient creates a Client for the given service configuration. tokens
// may be nil for unauthenticated upstreams.
func NewClient(cfg config.ServiceConfig, tokens TokenSource) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		tokens: tokens,
		breaker: newCircuitBreaker(
			cfg.CircuitBreaker.FailureThreshold,
			cfg.CircuitBreaker.SuccessThreshold,
			cfg.CircuitBreaker.Timeout,
		),
	}
}

// Instrument attaches telemetry recording for this client's upstream
// calls. Call before the client serves requests.
func (c *Client) Instrument(serviceID string, instr Instrumentation) {
	c.serviceID = serviceID
	c.instr = instr
}

// Fetch requests one page of records at the given path. The query state
// maps onto list parameters: search, filter[key], sort_by, sort_order,
// page, limit. A 401 invalidates the cached token and retries once with a
// fresh one.
func (c *Client) Fetch(ctx context.Context, rctx *model.RequestContext, path string, state model.QueryState) (FetchResult, error) {
	reqURL := c.baseURL + path + "?" + buildListParams(state).Encode()

	result, status, err := c.execute(ctx, rctx, reqURL)
	if err != nil {
		return FetchResult{}, err
	}
	if status == http.StatusUnauthorized && c.tokens != nil {
		c.tokens.Invalidate()
		if c.instr != nil {
			c.instr.RecordUpstreamTokenRefresh(c.serviceID)
		}
		result, status, err = c.execute(ctx, rctx, reqURL)
		if err != nil {
			return FetchResult{}, err
		}
	}

	switch {
	case status == http.StatusOK:
		return result, nil
	case status == http.StatusUnauthorized:
		return FetchResult{}, model.NewUnauthorizedError("upstream rejected credentials")
	case status == http.StatusNotFound:
		return FetchResult{}, model.NewNotFoundError("upstream resource not found")
	case status >= 500:
		return FetchResult{}, model.NewBackendUnavailableError()
	default:
		return FetchResult{}, model.NewBadRequestError(fmt.Sprintf("upstream returned %d", status))
	}
}

func (c *Client) execute(ctx context.Context, rctx *model.RequestContext, reqURL string) (FetchResult, int, error) {
	if err := c.breaker.allow(); err != nil {
		return FetchResult{}, 0, model.NewBackendUnavailableError()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return FetchResult{}, 0, fmt.Errorf("source: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	observability.InjectTraceHeaders(ctx, req.Header)
	if rctx != nil {
		req.Header.Set("X-Correlation-Id", sanitizeHeader(rctx.CorrelationID))
		req.Header.Set("X-Request-Subject", sanitizeHeader(rctx.SubjectID))
		if rctx.TenantID != "" {
			req.Header.Set("X-Tenant-Id", sanitizeHeader(rctx.TenantID))
		}
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return FetchResult{}, 0, fmt.Errorf("source: acquire token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+sanitizeHeader(token))
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.breaker.recordFailure()
		c.observe(0, time.Since(start))
		if isConnectionError(err) {
			return FetchResult{}, 0, model.NewBackendUnavailableError()
		}
		if ctx.Err() != nil || isTimeoutError(err) {
			return FetchResult{}, 0, model.NewBackendTimeoutError()
		}
		return FetchResult{}, 0, fmt.Errorf("source: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		c.breaker.recordFailure()
		c.observe(resp.StatusCode, time.Since(start))
		return FetchResult{}, resp.StatusCode, nil
	}
	c.breaker.recordSuccess()
	c.observe(resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return FetchResult{}, resp.StatusCode, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return FetchResult{}, 0, fmt.Errorf("source: read response: %w", err)
	}

	var payload struct {
		Items []model.Record `json:"items"`
		Meta  struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return FetchResult{}, 0, fmt.Errorf("source: decode response: %w", err)
	}
	if payload.Items == nil {
		payload.Items = []model.Record{}
	}

	return FetchResult{Records: payload.Items, Total: payload.Meta.Total}, resp.StatusCode, nil
}

// observe records one upstream call and the breaker state it left behind.
// Status 0 means the request never produced a response.
func (c *Client) observe(status int, duration time.Duration) {
	if c.instr == nil {
		return
	}
	c.instr.RecordUpstreamRequest(c.serviceID, status, duration)
	var state float64
	switch c.breaker.currentState() {
	case breakerHalfOpen:
		state = 1
	case breakerOpen:
		state = 2
	}
	c.instr.SetUpstreamCircuitBreakerState(c.serviceID, state)
}

// buildListParams maps query state onto conventional REST list parameters.
func buildListParams(state model.QueryState) url.Values {
	params := url.Values{}
	if s := strings.TrimSpace(state.SearchText); s != "" {
		params.Set("search", s)
	}
	for key, fv := range state.Filters {
		if fv.Empty() {
			continue
		}
		name := "filter[" + key + "]"
		for _, v := range fv {
			if v != "" {
				params.Add(name, v)
			}
		}
	}
	if state.SortKey != "" {
		params.Set("sort_by", state.SortKey)
		order := "asc"
		if state.SortDirection == model.SortDesc {
			order = "desc"
		}
		params.Set("sort_order", order)
	}
	page := state.Page
	if page < 1 {
		page = 1
	}
	limit := state.PageSize
	if limit < 1 {
		limit = 25
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))
	return params
}

// sanitizeHeader strips newlines and carriage returns to prevent header
// injection.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
