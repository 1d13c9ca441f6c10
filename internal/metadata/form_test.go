package metadata

import (
	"errors"
	"testing"

	"github.com/stackpal/tessera/model"
)

type fakeFormRegistry map[string]model.FormDefinition

func (f fakeFormRegistry) Form(formID string) (model.FormDefinition, bool) {
	def, ok := f[formID]
	return def, ok
}

func minLen(n int) *int { return &n }

func signupForm() model.FormDefinition {
	return model.FormDefinition{
		ID:           "signup",
		Title:        "Create account",
		Capabilities: []string{"users:create"},
		Sections: []model.SectionDefinition{
			{
				Key:   "identity",
				Title: "Identity",
				Fields: []model.FormFieldDefinition{
					{Key: "username", Label: "Username", Type: "text", Required: true,
						Validation: &model.ValidationDefinition{MinLength: minLen(3)}},
					{Key: "email", Label: "Email", Type: "email", Required: true},
				},
			},
			{
				Key:   "security",
				Title: "Security",
				Fields: []model.FormFieldDefinition{
					{Key: "password", Label: "Password", Type: "text", Required: true,
						Validation: &model.ValidationDefinition{MinLength: minLen(8)}},
					{Key: "confirm_password", Label: "Confirm password", Type: "text",
						Required: true, Confirms: "password", Layout: "half"},
				},
			},
		},
	}
}

func TestFormProvider_GetForm(t *testing.T) {
	p := NewFormProvider(fakeFormRegistry{"signup": signupForm()})
	caps := model.CapabilitySet{"users:create": true}

	desc, err := p.GetForm(caps, "signup")
	if err != nil {
		t.Fatalf("GetForm: %v", err)
	}

	if desc.ID != "signup" || desc.Title != "Create account" {
		t.Errorf("header = %q/%q", desc.ID, desc.Title)
	}
	if len(desc.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(desc.Sections))
	}
	if desc.Sections[0].Key != "identity" || len(desc.Sections[0].Fields) != 2 {
		t.Errorf("identity section = %+v", desc.Sections[0])
	}

	security := desc.Sections[1]
	if security.Fields[1].Confirms != "password" {
		t.Errorf("confirms not carried: %+v", security.Fields[1])
	}
	if security.Fields[1].Layout != model.LayoutHalf {
		t.Errorf("layout = %q, want half", security.Fields[1].Layout)
	}
	if security.Fields[0].Layout != model.LayoutFull {
		t.Errorf("default layout = %q, want full", security.Fields[0].Layout)
	}
}

func TestFormProvider_GetFormErrors(t *testing.T) {
	p := NewFormProvider(fakeFormRegistry{"signup": signupForm()})

	_, err := p.GetForm(model.CapabilitySet{"*": true}, "ghost")
	var env *model.ErrorEnvelope
	if !errors.As(err, &env) || env.Code != model.ErrNotFound {
		t.Errorf("unknown form err = %v, want NOT_FOUND", err)
	}

	_, err = p.GetForm(model.CapabilitySet{}, "signup")
	if !errors.As(err, &env) || env.Code != model.ErrForbidden {
		t.Errorf("no capability err = %v, want FORBIDDEN", err)
	}
}

func TestFormProvider_ValidateDraft(t *testing.T) {
	p := NewFormProvider(fakeFormRegistry{"signup": signupForm()})
	caps := model.CapabilitySet{"users:create": true}

	errsMap, err := p.ValidateDraft(caps, "signup", model.Record{
		"username":         model.Text("alice"),
		"email":            model.Text("alice@example.com"),
		"password":         model.Text("long-enough"),
		"confirm_password": model.Text("long-enough"),
	})
	if err != nil {
		t.Fatalf("ValidateDraft: %v", err)
	}
	if len(errsMap) != 0 {
		t.Errorf("valid draft errors = %v", errsMap)
	}

	errsMap, err = p.ValidateDraft(caps, "signup", model.Record{
		"username":         model.Text("al"),
		"password":         model.Text("long-enough"),
		"confirm_password": model.Text("different"),
	})
	if err != nil {
		t.Fatalf("ValidateDraft: %v", err)
	}
	if errsMap["username"] != "Username must be at least 3 characters" {
		t.Errorf("username error = %q", errsMap["username"])
	}
	if errsMap["email"] != "Email is required" {
		t.Errorf("email error = %q", errsMap["email"])
	}
	if errsMap["confirm_password"] != "Confirm password must match Password" {
		t.Errorf("confirm error = %q", errsMap["confirm_password"])
	}
}
