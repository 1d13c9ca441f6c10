package transport

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stackpal/tessera/internal/metadata"
	"github.com/stackpal/tessera/internal/observability"
	"github.com/stackpal/tessera/model"
)

func handleGetForm(forms *metadata.FormProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caps := CapabilitiesFrom(r.Context())
		formID := chi.URLParam(r, "formId")

		desc, err := forms.GetForm(caps, formID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, desc)
	}
}

// validateRequest is the body of a draft validation: the draft record keyed
// by field.
type validateRequest struct {
	Draft model.Record `json:"draft"`
}

func handleValidateForm(forms *metadata.FormProvider, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caps := CapabilitiesFrom(r.Context())
		formID := chi.URLParam(r, "formId")

		var req validateRequest
		if err := decodeBody(r, &req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid request body: "+err.Error()))
			return
		}

		errsMap, err := forms.ValidateDraft(caps, formID, req.Draft)
		if err != nil {
			WriteError(w, err)
			return
		}
		if metrics != nil {
			metrics.RecordDraftValidation(formID, len(errsMap))
		}

		if len(errsMap) > 0 {
			observability.RequestLogger(r.Context(), logger).Debug("draft validation failed",
				zap.String("form_id", formID),
				zap.Int("failures", len(errsMap)),
				zap.Any("draft", observability.RedactBody(recordFields(req.Draft), nil)),
			)
			details := make([]model.FieldError, 0, len(errsMap))
			for field, msg := range errsMap {
				details = append(details, model.FieldError{
					Field:   field,
					Code:    model.ErrValidationError,
					Message: msg,
				})
			}
			sort.Slice(details, func(i, j int) bool { return details[i].Field < details[j].Field })
			WriteValidationError(w, details)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"valid": true})
	}
}

// recordFields flattens a record into loggable scalar values.
func recordFields(rec model.Record) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v.String()
	}
	return out
}
