package action

import (
	"testing"

	"github.com/stackpal/tessera/model"
)

func testActions() []model.ActionDefinition {
	return []model.ActionDefinition{
		{
			Key:          "edit",
			Label:        "Edit",
			Type:         "navigate",
			NavigateTo:   "/orders/:id/edit",
			Capabilities: []string{"orders:edit"},
		},
		{
			Key:          "cancel",
			Label:        "Cancel",
			Type:         "command",
			Capabilities: []string{"orders:cancel"},
			Conditions: []model.ConditionDefinition{
				{Field: "status", Operator: "in", Value: "pending, confirmed", Effect: "show"},
			},
			Confirmation: &model.ConfirmationDefinition{
				Title:   "Cancel order",
				Message: "This cannot be undone.",
				Confirm: "Cancel order",
			},
		},
	}
}

func TestResolver_Resolve_capabilityFiltering(t *testing.T) {
	r := NewResolver()
	caps := model.CapabilitySet{"orders:edit": true}

	got := r.Resolve(caps, testActions(), nil)
	if len(got) != 1 || got[0].Key != "edit" {
		t.Errorf("Resolve = %v actions, want only edit", len(got))
	}
}

func TestResolver_Resolve_conditionsDeferredWithoutRecord(t *testing.T) {
	r := NewResolver()
	caps := model.CapabilitySet{"orders:*": true}

	got := r.Resolve(caps, testActions(), nil)
	if len(got) != 2 {
		t.Fatalf("Resolve = %d actions, want 2", len(got))
	}

	cancel := got[1]
	if len(cancel.Conditions) != 1 {
		t.Errorf("cancel.Conditions = %v, want the condition passed through", cancel.Conditions)
	}
	if !cancel.Visible || !cancel.Enabled {
		t.Errorf("deferred conditions must not change flags: visible=%v enabled=%v", cancel.Visible, cancel.Enabled)
	}
	if cancel.Confirmation == nil || cancel.Confirmation.Title != "Cancel order" {
		t.Errorf("confirmation not carried over: %+v", cancel.Confirmation)
	}
}

func TestResolver_Resolve_showEffect(t *testing.T) {
	r := NewResolver()
	caps := model.CapabilitySet{"orders:*": true}

	pending := model.Record{"status": model.Text("pending")}
	got := r.Resolve(caps, testActions(), pending)
	if !got[1].Visible {
		t.Errorf("cancel should be visible for pending order")
	}
	if len(got[1].Conditions) != 0 {
		t.Errorf("evaluated conditions should not be passed through: %v", got[1].Conditions)
	}

	shipped := model.Record{"status": model.Text("shipped")}
	got = r.Resolve(caps, testActions(), shipped)
	if got[1].Visible {
		t.Errorf("cancel should be hidden for shipped order")
	}
}

func TestResolver_Resolve_effects(t *testing.T) {
	caps := model.CapabilitySet{"*": true}
	cases := []struct {
		name        string
		cond        model.ConditionDefinition
		record      model.Record
		wantVisible bool
		wantEnabled bool
	}{
		{
			name:        "hide when met",
			cond:        model.ConditionDefinition{Field: "locked", Operator: "eq", Value: "true", Effect: "hide"},
			record:      model.Record{"locked": model.Bool(true)},
			wantVisible: false,
			wantEnabled: true,
		},
		{
			name:        "hide when not met",
			cond:        model.ConditionDefinition{Field: "locked", Operator: "eq", Value: "true", Effect: "hide"},
			record:      model.Record{"locked": model.Bool(false)},
			wantVisible: true,
			wantEnabled: true,
		},
		{
			name:        "disable when met",
			cond:        model.ConditionDefinition{Field: "status", Operator: "neq", Value: "draft", Effect: "disable"},
			record:      model.Record{"status": model.Text("final")},
			wantVisible: true,
			wantEnabled: false,
		},
		{
			name:        "enable when not met",
			cond:        model.ConditionDefinition{Field: "status", Operator: "eq", Value: "draft", Effect: "enable"},
			record:      model.Record{"status": model.Text("final")},
			wantVisible: true,
			wantEnabled: false,
		},
		{
			name:        "exists",
			cond:        model.ConditionDefinition{Field: "deleted_at", Operator: "exists", Effect: "hide"},
			record:      model.Record{"deleted_at": model.Text("2024-01-01")},
			wantVisible: false,
			wantEnabled: true,
		},
		{
			name:        "not_exists",
			cond:        model.ConditionDefinition{Field: "deleted_at", Operator: "not_exists", Effect: "disable"},
			record:      model.Record{"id": model.Text("1")},
			wantVisible: true,
			wantEnabled: false,
		},
	}

	r := NewResolver()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actions := []model.ActionDefinition{{
				Key:        "act",
				Label:      "Act",
				Type:       "command",
				Conditions: []model.ConditionDefinition{tc.cond},
			}}
			got := r.Resolve(caps, actions, tc.record)
			if len(got) != 1 {
				t.Fatalf("Resolve = %d actions, want 1", len(got))
			}
			if got[0].Visible != tc.wantVisible || got[0].Enabled != tc.wantEnabled {
				t.Errorf("visible=%v enabled=%v, want %v/%v",
					got[0].Visible, got[0].Enabled, tc.wantVisible, tc.wantEnabled)
			}
		})
	}
}

func TestResolver_Resolve_inWithListValue(t *testing.T) {
	r := NewResolver()
	caps := model.CapabilitySet{"*": true}
	actions := []model.ActionDefinition{{
		Key:   "escalate",
		Label: "Escalate",
		Type:  "command",
		Conditions: []model.ConditionDefinition{
			{Field: "priority", Operator: "in", Value: []any{"high", "critical"}, Effect: "show"},
		},
	}}

	got := r.Resolve(caps, actions, model.Record{"priority": model.Text("critical")})
	if !got[0].Visible {
		t.Errorf("escalate should be visible for critical priority")
	}

	got = r.Resolve(caps, actions, model.Record{"priority": model.Text("low")})
	if got[0].Visible {
		t.Errorf("escalate should be hidden for low priority")
	}
}

func TestResolver_Resolve_alwaysNonNil(t *testing.T) {
	r := NewResolver()
	got := r.Resolve(model.CapabilitySet{}, nil, nil)
	if got == nil {
		t.Errorf("Resolve returned nil slice")
	}
}
