package action

import (
	"fmt"
	"strings"

	"github.com/stackpal/tessera/model"
)

// Resolver turns declared action definitions into descriptors for one
// record, filtering by capability and evaluating whatever conditions the
// record can answer server-side.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve filters the definitions by the caller's capabilities and
// evaluates conditions against the record. Conditions whose field the
// record does not carry are passed through as ConditionDescriptors for
// client-side evaluation. A nil record defers every condition. The result
// is always non-nil.
func (r *Resolver) Resolve(
	caps model.CapabilitySet,
	actions []model.ActionDefinition,
	rec model.Record,
) []model.ActionDescriptor {
	result := []model.ActionDescriptor{}
	for _, action := range actions {
		if len(action.Capabilities) > 0 && !caps.HasAll(action.Capabilities...) {
			continue
		}

		desc := model.ActionDescriptor{
			Key:        action.Key,
			Label:      action.Label,
			Icon:       action.Icon,
			Style:      action.Style,
			Type:       action.Type,
			Enabled:    true,
			Visible:    true,
			NavigateTo: action.NavigateTo,
		}

		if action.Confirmation != nil {
			desc.Confirmation = &model.ConfirmationDescriptor{
				Title:   action.Confirmation.Title,
				Message: action.Confirmation.Message,
				Confirm: action.Confirmation.Confirm,
				Cancel:  action.Confirmation.Cancel,
				Style:   action.Confirmation.Style,
			}
		}

		var clientConditions []model.ConditionDescriptor
		for _, cond := range action.Conditions {
			if isAnswerable(cond, rec) {
				met := evaluateCondition(cond, rec)
				applyConditionEffect(&desc, cond.Effect, met)
			} else {
				clientConditions = append(clientConditions, model.ConditionDescriptor{
					Field:    cond.Field,
					Operator: cond.Operator,
					Value:    cond.Value,
					Effect:   cond.Effect,
				})
			}
		}
		if len(clientConditions) > 0 {
			desc.Conditions = clientConditions
		}

		result = append(result, desc)
	}
	return result
}

// isAnswerable reports whether the condition can be evaluated server-side:
// the record must carry the condition's field. Existence checks are always
// answerable against a non-nil record.
func isAnswerable(cond model.ConditionDefinition, rec model.Record) bool {
	if rec == nil {
		return false
	}
	if cond.Operator == "exists" || cond.Operator == "not_exists" {
		return true
	}
	_, ok := rec[cond.Field]
	return ok
}

// evaluateCondition evaluates one condition against the record.
func evaluateCondition(cond model.ConditionDefinition, rec model.Record) bool {
	fieldVal, exists := rec[cond.Field]

	switch cond.Operator {
	case "eq", "equals", "==":
		return exists && fieldVal.String() == stringify(cond.Value)
	case "neq", "not_equals", "!=":
		return exists && fieldVal.String() != stringify(cond.Value)
	case "in":
		return exists && valueInSet(fieldVal, cond.Value)
	case "not_in":
		return exists && !valueInSet(fieldVal, cond.Value)
	case "exists":
		return exists && !fieldVal.IsNull()
	case "not_exists":
		return !exists || fieldVal.IsNull()
	default:
		return false
	}
}

// applyConditionEffect folds one evaluated condition into the descriptor's
// enabled/visible flags.
func applyConditionEffect(desc *model.ActionDescriptor, effect string, conditionMet bool) {
	switch effect {
	case "hide":
		if conditionMet {
			desc.Visible = false
		}
	case "show":
		if !conditionMet {
			desc.Visible = false
		}
	case "disable":
		if conditionMet {
			desc.Enabled = false
		}
	case "enable":
		if !conditionMet {
			desc.Enabled = false
		}
	}
}

// valueInSet checks membership of the record value in the condition value,
// which may be a list or a comma-separated string.
func valueInSet(fieldVal model.Value, condValue any) bool {
	fieldStr := fieldVal.String()

	switch cv := condValue.(type) {
	case []any:
		for _, v := range cv {
			if stringify(v) == fieldStr {
				return true
			}
		}
	case []string:
		for _, v := range cv {
			if v == fieldStr {
				return true
			}
		}
	case string:
		for _, v := range strings.Split(cv, ",") {
			if strings.TrimSpace(v) == fieldStr {
				return true
			}
		}
	}
	return false
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
