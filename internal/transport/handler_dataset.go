package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stackpal/tessera/internal/action"
	"github.com/stackpal/tessera/internal/definition"
	"github.com/stackpal/tessera/internal/metadata"
	"github.com/stackpal/tessera/internal/observability"
	"github.com/stackpal/tessera/internal/query"
	"github.com/stackpal/tessera/internal/source"
	"github.com/stackpal/tessera/model"
)

// maxBodyBytes caps request body reads.
const maxBodyBytes = 2 << 20

func handleListDatasets(tables *metadata.TableProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caps := CapabilitiesFrom(r.Context())

		type datasetSummary struct {
			Dataset string `json:"dataset"`
			Title   string `json:"title"`
			Version string `json:"version"`
		}
		defs := tables.Datasets(caps)
		out := make([]datasetSummary, 0, len(defs))
		for _, def := range defs {
			out = append(out, datasetSummary{
				Dataset: def.Dataset,
				Title:   def.Title,
				Version: def.Version,
			})
		}
		WriteJSON(w, http.StatusOK, map[string]any{"datasets": out})
	}
}

func handleGetTable(tables *metadata.TableProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caps := CapabilitiesFrom(r.Context())
		datasetID := chi.URLParam(r, "datasetId")

		desc, err := tables.GetTable(caps, datasetID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, desc)
	}
}

// queryRequest is the body of a dataset query. Records, when supplied, are
// evaluated locally; otherwise datasets bound to an upstream source fetch a
// server-side page.
type queryRequest struct {
	State   model.QueryState `json:"state"`
	Records []model.Record   `json:"records,omitempty"`
}

func handleQuery(
	registry *definition.Registry,
	engine *query.Engine,
	sources map[string]*source.Client,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.RequestContextFrom(r.Context())
		caps := CapabilitiesFrom(r.Context())
		datasetID := chi.URLParam(r, "datasetId")

		def, ok := registry.Dataset(datasetID)
		if !ok {
			WriteNotFound(w, "dataset not found: "+datasetID)
			return
		}
		if len(def.Capabilities) > 0 && !caps.HasAll(def.Capabilities...) {
			WriteError(w, model.NewForbiddenError("missing capability for dataset "+datasetID))
			return
		}

		var req queryRequest
		if err := decodeBody(r, &req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid request body: "+err.Error()))
			return
		}
		if req.State.PageSize < 1 {
			req.State.PageSize = def.PageSize
		}

		ctx, span := observability.StartSpan(r.Context(), "dataset.query",
			observability.AttrDatasetID.String(datasetID))

		start := time.Now()
		var result model.QueryResult
		var err error
		mode := "local"

		switch {
		case req.Records == nil && def.Source != nil:
			mode = "upstream"
			client, found := sources[def.Source.ServiceID]
			if !found {
				observability.EndSpanWithError(span, model.NewInternalError())
				observability.RequestLogger(r.Context(), logger).Error("dataset bound to unconfigured service",
					zap.String("dataset", datasetID),
					zap.String("service_id", def.Source.ServiceID),
				)
				WriteError(w, model.NewInternalError())
				return
			}
			var fetched source.FetchResult
			fetched, err = client.Fetch(ctx, rctx, def.Source.Path, req.State)
			if err == nil {
				result = model.QueryResult{
					Items:      fetched.Records,
					TotalCount: fetched.Total,
					TotalPages: totalPages(fetched.Total, req.State.PageSize),
				}
			}
		default:
			sc, found := registry.Schema(datasetID)
			if !found {
				observability.EndSpanWithError(span, model.NewInternalError())
				WriteError(w, model.NewInternalError())
				return
			}
			result = engine.Evaluate(sc, req.Records, req.State)
		}

		span.SetAttributes(observability.AttrQueryMode.String(mode))
		observability.EndSpanWithError(span, err)
		if metrics != nil {
			metrics.RecordQueryEvaluation(datasetID, mode, time.Since(start), len(result.Items))
		}

		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

// actionRequest is the body of an action dispatch: the record the action is
// invoked on.
type actionRequest struct {
	Record model.Record `json:"record"`
}

func handleDispatchAction(
	registry *definition.Registry,
	dispatchers map[string]*action.Dispatcher,
	metrics *observability.Metrics,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caps := CapabilitiesFrom(r.Context())
		datasetID := chi.URLParam(r, "datasetId")
		actionID := chi.URLParam(r, "actionId")

		def, ok := registry.Dataset(datasetID)
		if !ok {
			WriteNotFound(w, "dataset not found: "+datasetID)
			return
		}
		if len(def.Capabilities) > 0 && !caps.HasAll(def.Capabilities...) {
			WriteError(w, model.NewForbiddenError("missing capability for dataset "+datasetID))
			return
		}

		actDef, ok := findAction(def.Actions, actionID)
		if !ok {
			WriteNotFound(w, "unknown action: "+actionID)
			return
		}
		if len(actDef.Capabilities) > 0 && !caps.HasAll(actDef.Capabilities...) {
			WriteError(w, model.NewForbiddenError("missing capability for action "+actionID))
			return
		}

		var req actionRequest
		if err := decodeBody(r, &req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid request body: "+err.Error()))
			return
		}

		// Navigation actions carry no server-side behavior; the target is
		// returned for the client to follow.
		if actDef.Type == "navigate" {
			WriteJSON(w, http.StatusOK, map[string]string{
				"status":      "ok",
				"navigate_to": actDef.NavigateTo,
			})
			return
		}

		ctx, span := observability.StartSpan(r.Context(), "dataset.action",
			observability.AttrDatasetID.String(datasetID),
			observability.AttrActionID.String(actionID),
		)

		start := time.Now()
		var err error
		if d := dispatchers[datasetID]; d != nil {
			err = d.Dispatch(ctx, actionID, req.Record)
		} else {
			err = model.NewNotFoundError("action has no handler: " + actionID)
		}
		observability.EndSpanWithError(span, err)

		if metrics != nil {
			status := "ok"
			if err != nil {
				status = "error"
			}
			metrics.RecordActionDispatch(datasetID, actionID, status, time.Since(start))
		}

		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// --- helpers ---

func decodeBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, dst)
}

func findAction(actions []model.ActionDefinition, key string) (model.ActionDefinition, bool) {
	for _, a := range actions {
		if a.Key == key {
			return a, true
		}
	}
	return model.ActionDefinition{}, false
}

func totalPages(total, pageSize int) int {
	if pageSize < 1 {
		pageSize = 1
	}
	if total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
