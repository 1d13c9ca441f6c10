package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stackpal/tessera/internal/action"
	"github.com/stackpal/tessera/internal/config"
	"github.com/stackpal/tessera/internal/definition"
	"github.com/stackpal/tessera/internal/metadata"
	"github.com/stackpal/tessera/internal/observability"
	"github.com/stackpal/tessera/internal/query"
	"github.com/stackpal/tessera/internal/source"
	"github.com/stackpal/tessera/model"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config             *config.Config
	Logger             *zap.Logger
	Metrics            *observability.Metrics
	Registry           *definition.Registry
	Engine             *query.Engine
	Tables             *metadata.TableProvider
	Forms              *metadata.FormProvider
	Sources map[string]*source.Client

	// Dispatchers supplies the handlers behind command actions, keyed by
	// dataset. Handlers are code and must be registered by the embedding
	// program; a command action without one returns NOT_FOUND on dispatch.
	Dispatchers map[string]*action.Dispatcher

	CapabilityResolver model.CapabilityResolver

	// Authenticate overrides the default JWT middleware; nil means the
	// identity configuration decides.
	Authenticate func(http.Handler) http.Handler
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics endpoints bypass the
// authentication middleware.
func NewRouter(deps Dependencies) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Surface unregistered command handlers at startup instead of at the
	// first failing dispatch.
	if deps.Registry != nil {
		for _, def := range deps.Registry.AllDatasets() {
			if deps.Dispatchers[def.Dataset] != nil {
				continue
			}
			for _, a := range def.Actions {
				if a.Type == "command" {
					logger.Warn("command action has no registered handler",
						zap.String("dataset", def.Dataset),
						zap.String("action", a.Key),
					)
				}
			}
		}
	}

	r := chi.NewRouter()

	// Global middleware: applied to all routes including health.
	r.Use(Recovery(logger))
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(RequestID)
	r.Use(SecurityHeaders)

	// Public routes bypass authentication.
	r.Get("/ui/health", handleHealth)
	r.Get("/ui/ready", handleReady(deps.Registry))
	if deps.Config.Observability.Metrics.Enabled {
		metricsPath := deps.Config.Observability.Metrics.Path
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.Method(http.MethodGet, metricsPath, observability.Handler())
	}

	auth := deps.Authenticate
	if auth == nil {
		if deps.Config.Identity.Enabled {
			auth = JWTAuthenticator(deps.Config.Identity)
		} else {
			auth = func(next http.Handler) http.Handler { return next }
		}
	}

	r.Group(func(r chi.Router) {
		r.Use(observability.TracingMiddleware)
		if deps.Metrics != nil {
			r.Use(deps.Metrics.MetricsMiddleware)
		}
		r.Use(auth)
		r.Use(BuildRequestContext)
		r.Use(ResolveCapabilities(deps.CapabilityResolver, logger))
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(RequestLogging(logger))

		r.Get("/ui/datasets", handleListDatasets(deps.Tables))
		r.Get("/ui/datasets/{datasetId}", handleGetTable(deps.Tables))
		r.Post("/ui/datasets/{datasetId}/query",
			handleQuery(deps.Registry, deps.Engine, deps.Sources, deps.Metrics, logger))
		r.Post("/ui/datasets/{datasetId}/actions/{actionId}",
			handleDispatchAction(deps.Registry, deps.Dispatchers, deps.Metrics))
		r.Get("/ui/forms/{formId}", handleGetForm(deps.Forms))
		r.Post("/ui/forms/{formId}/validate", handleValidateForm(deps.Forms, deps.Metrics, logger))
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once the definition registry holds a snapshot.
func handleReady(registry *definition.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if registry == nil || registry.Checksum() == "" {
			WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
