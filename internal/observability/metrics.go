package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets     = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	evaluateDurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}
	upstreamDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	bodySizeBuckets         = []float64{100, 1024, 10240, 102400, 1048576}
)

// Metrics holds all Prometheus metric instruments for the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestSizeBytes  *prometheus.HistogramVec
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Query metrics
	QueryEvaluationsTotal *prometheus.CounterVec
	QueryDuration         *prometheus.HistogramVec
	QueryResultSize       *prometheus.HistogramVec

	// Form metrics
	DraftValidationsTotal   *prometheus.CounterVec
	ValidationFailuresTotal *prometheus.CounterVec

	// Action metrics
	ActionDispatchesTotal *prometheus.CounterVec
	ActionDuration        *prometheus.HistogramVec

	// Upstream metrics
	UpstreamRequestsTotal       *prometheus.CounterVec
	UpstreamRequestDuration     *prometheus.HistogramVec
	UpstreamCircuitBreakerState *prometheus.GaugeVec
	UpstreamTokenRefreshesTotal *prometheus.CounterVec

	// System metrics
	DefinitionReloadTotal *prometheus.CounterVec
	DefinitionsLoaded     prometheus.Gauge
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		// HTTP
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tessera_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPRequestSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tessera_http_request_size_bytes",
			Help:    "HTTP request body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPResponseSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tessera_http_response_size_bytes",
			Help:    "HTTP response body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),

		// Queries
		QueryEvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_query_evaluations_total",
			Help: "Total number of query evaluations.",
		}, []string{"dataset", "mode"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tessera_query_duration_seconds",
			Help:    "Query evaluation duration in seconds.",
			Buckets: evaluateDurationBuckets,
		}, []string{"dataset"}),
		QueryResultSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tessera_query_result_size",
			Help:    "Number of records in query results.",
			Buckets: []float64{0, 1, 10, 25, 50, 100, 500},
		}, []string{"dataset"}),

		// Forms
		DraftValidationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_draft_validations_total",
			Help: "Total number of draft validations.",
		}, []string{"form_id", "status"}),
		ValidationFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_validation_failures_total",
			Help: "Total number of field validation failures.",
		}, []string{"form_id"}),

		// Actions
		ActionDispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_action_dispatches_total",
			Help: "Total number of action dispatches.",
		}, []string{"dataset", "action", "status"}),
		ActionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tessera_action_duration_seconds",
			Help:    "Action dispatch duration in seconds.",
			Buckets: upstreamDurationBuckets,
		}, []string{"dataset", "action"}),

		// Upstream
		UpstreamRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_upstream_requests_total",
			Help: "Total number of upstream service requests.",
		}, []string{"service_id", "status"}),
		UpstreamRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tessera_upstream_request_duration_seconds",
			Help:    "Upstream request duration in seconds.",
			Buckets: upstreamDurationBuckets,
		}, []string{"service_id"}),
		UpstreamCircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tessera_upstream_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"service_id"}),
		UpstreamTokenRefreshesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_upstream_token_refreshes_total",
			Help: "Total number of upstream token refreshes.",
		}, []string{"service_id"}),

		// System
		DefinitionReloadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_definition_reload_total",
			Help: "Total definition reloads.",
		}, []string{"status"}),
		DefinitionsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tessera_definitions_loaded",
			Help: "Number of loaded dataset definitions.",
		}),
	}

	reg.MustRegister(
		// HTTP
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSizeBytes,
		m.HTTPResponseSizeBytes,
		// Queries
		m.QueryEvaluationsTotal,
		m.QueryDuration,
		m.QueryResultSize,
		// Forms
		m.DraftValidationsTotal,
		m.ValidationFailuresTotal,
		// Actions
		m.ActionDispatchesTotal,
		m.ActionDuration,
		// Upstream
		m.UpstreamRequestsTotal,
		m.UpstreamRequestDuration,
		m.UpstreamCircuitBreakerState,
		m.UpstreamTokenRefreshesTotal,
		// System
		m.DefinitionReloadTotal,
		m.DefinitionsLoaded,
	)

	return m
}

// --- Recording helpers ---

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration, reqSize, respSize int) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
	m.HTTPRequestSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(reqSize))
	m.HTTPResponseSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(respSize))
}

// RecordQueryEvaluation records one query evaluation. Mode is "local" for
// engine-evaluated queries and "upstream" for server-side paginated ones.
func (m *Metrics) RecordQueryEvaluation(dataset, mode string, duration time.Duration, resultSize int) {
	m.QueryEvaluationsTotal.WithLabelValues(dataset, mode).Inc()
	m.QueryDuration.WithLabelValues(dataset).Observe(duration.Seconds())
	m.QueryResultSize.WithLabelValues(dataset).Observe(float64(resultSize))
}

// RecordDraftValidation records one draft validation and its failure count.
func (m *Metrics) RecordDraftValidation(formID string, failures int) {
	status := "valid"
	if failures > 0 {
		status = "invalid"
	}
	m.DraftValidationsTotal.WithLabelValues(formID, status).Inc()
	if failures > 0 {
		m.ValidationFailuresTotal.WithLabelValues(formID).Add(float64(failures))
	}
}

// RecordActionDispatch records an action dispatch.
func (m *Metrics) RecordActionDispatch(dataset, actionKey, status string, duration time.Duration) {
	m.ActionDispatchesTotal.WithLabelValues(dataset, actionKey, status).Inc()
	m.ActionDuration.WithLabelValues(dataset, actionKey).Observe(duration.Seconds())
}

// RecordUpstreamRequest records an upstream service request.
func (m *Metrics) RecordUpstreamRequest(serviceID string, status int, duration time.Duration) {
	m.UpstreamRequestsTotal.WithLabelValues(serviceID, strconv.Itoa(status)).Inc()
	m.UpstreamRequestDuration.WithLabelValues(serviceID).Observe(duration.Seconds())
}

// SetUpstreamCircuitBreakerState sets the circuit breaker state for a
// service. State: 0=closed, 1=half-open, 2=open.
func (m *Metrics) SetUpstreamCircuitBreakerState(serviceID string, state float64) {
	m.UpstreamCircuitBreakerState.WithLabelValues(serviceID).Set(state)
}

// RecordUpstreamTokenRefresh records an upstream token refresh.
func (m *Metrics) RecordUpstreamTokenRefresh(serviceID string) {
	m.UpstreamTokenRefreshesTotal.WithLabelValues(serviceID).Inc()
}

// RecordDefinitionReload records a definition reload.
func (m *Metrics) RecordDefinitionReload(status string) {
	m.DefinitionReloadTotal.WithLabelValues(status).Inc()
}

// SetDefinitionsLoaded sets the number of loaded definitions.
func (m *Metrics) SetDefinitionsLoaded(count float64) {
	m.DefinitionsLoaded.Set(count)
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics
// using chi's route pattern (not the actual URL path) to avoid label
// cardinality explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		pathPattern := routePattern(r)
		reqSize := 0
		if r.ContentLength > 0 {
			reqSize = int(r.ContentLength)
		}

		m.RecordHTTPRequest(r.Method, pathPattern, sw.status, duration, reqSize, sw.bytes)
	})
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	// chi route patterns have trailing /*, remove it.
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// metricsResponseWriter wraps http.ResponseWriter to capture status and bytes.
type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	bytes   int
	written bool
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}
