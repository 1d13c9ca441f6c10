package form

import (
	"testing"

	"github.com/stackpal/tessera/model"
)

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func registrationFields() []model.FormFieldDescriptor {
	return []model.FormFieldDescriptor{
		{
			FieldDescriptor: model.FieldDescriptor{Key: "username", Label: "Username", Type: model.TypeText},
			Required:        true,
			Validation:      &model.ValidationRules{MinLength: intPtr(3), MaxLength: intPtr(20)},
		},
		{
			FieldDescriptor: model.FieldDescriptor{Key: "email", Label: "Email", Type: model.TypeEmail},
			Required:        true,
			Validation:      &model.ValidationRules{Pattern: `^[^@\s]+@[^@\s]+\.[^@\s]+$`},
		},
		{
			FieldDescriptor: model.FieldDescriptor{Key: "age", Label: "Age", Type: model.TypeNumber},
			Validation:      &model.ValidationRules{Min: floatPtr(18), Max: floatPtr(120)},
		},
		{
			FieldDescriptor: model.FieldDescriptor{Key: "password", Label: "Password", Type: model.TypeText},
			Required:        true,
			Validation:      &model.ValidationRules{MinLength: intPtr(8)},
		},
		{
			FieldDescriptor: model.FieldDescriptor{Key: "confirm_password", Label: "Confirm password", Type: model.TypeText},
			Required:        true,
			Confirms:        "password",
		},
	}
}

func validDraft() model.Record {
	return model.Record{
		"username":         model.Text("alice"),
		"email":            model.Text("alice@example.com"),
		"age":              model.Number(30),
		"password":         model.Text("s3cret-pass"),
		"confirm_password": model.Text("s3cret-pass"),
	}
}

func TestValidate_validDraft(t *testing.T) {
	errs := Validate(registrationFields(), validDraft())
	if len(errs) != 0 {
		t.Errorf("errors = %v, want none", errs)
	}
}

func TestValidate_requiredFieldMissing(t *testing.T) {
	draft := validDraft()
	delete(draft, "username")

	errs := Validate(registrationFields(), draft)
	if errs["username"] != "Username is required" {
		t.Errorf("username error = %q", errs["username"])
	}
}

func TestValidate_requiredFieldEmpty(t *testing.T) {
	draft := validDraft()
	draft["username"] = model.Text("")

	errs := Validate(registrationFields(), draft)
	if errs["username"] != "Username is required" {
		t.Errorf("username error = %q", errs["username"])
	}

	draft["username"] = model.Null()
	errs = Validate(registrationFields(), draft)
	if errs["username"] != "Username is required" {
		t.Errorf("username error for null = %q", errs["username"])
	}
}

func TestValidate_lengthBounds(t *testing.T) {
	draft := validDraft()
	draft["username"] = model.Text("ab")

	errs := Validate(registrationFields(), draft)
	if errs["username"] != "Username must be at least 3 characters" {
		t.Errorf("min length error = %q", errs["username"])
	}

	draft["username"] = model.Text("an-unreasonably-long-username")
	errs = Validate(registrationFields(), draft)
	if errs["username"] != "Username must be at most 20 characters" {
		t.Errorf("max length error = %q", errs["username"])
	}
}

func TestValidate_lengthSkippedForNonStrings(t *testing.T) {
	fields := []model.FormFieldDescriptor{{
		FieldDescriptor: model.FieldDescriptor{Key: "count", Label: "Count", Type: model.TypeNumber},
		Validation:      &model.ValidationRules{MinLength: intPtr(5)},
	}}

	errs := Validate(fields, model.Record{"count": model.Number(1)})
	if len(errs) != 0 {
		t.Errorf("length rule applied to a number: %v", errs)
	}
}

func TestValidate_pattern(t *testing.T) {
	draft := validDraft()
	draft["email"] = model.Text("not-an-email")

	errs := Validate(registrationFields(), draft)
	if errs["email"] != "Email format is invalid" {
		t.Errorf("pattern error = %q", errs["email"])
	}
}

func TestValidate_invalidPatternIsSkipped(t *testing.T) {
	fields := []model.FormFieldDescriptor{{
		FieldDescriptor: model.FieldDescriptor{Key: "code", Label: "Code", Type: model.TypeText},
		Validation:      &model.ValidationRules{Pattern: "("},
	}}

	errs := Validate(fields, model.Record{"code": model.Text("anything")})
	if len(errs) != 0 {
		t.Errorf("uncompilable pattern should be skipped: %v", errs)
	}
}

func TestValidate_numericBounds(t *testing.T) {
	draft := validDraft()
	draft["age"] = model.Number(15)

	errs := Validate(registrationFields(), draft)
	if errs["age"] != "Age must be at least 18" {
		t.Errorf("min error = %q", errs["age"])
	}

	draft["age"] = model.Number(150)
	errs = Validate(registrationFields(), draft)
	if errs["age"] != "Age must be at most 120" {
		t.Errorf("max error = %q", errs["age"])
	}
}

func TestValidate_numericBoundsSkippedForText(t *testing.T) {
	draft := validDraft()
	draft["age"] = model.Text("15")

	errs := Validate(registrationFields(), draft)
	if msg, ok := errs["age"]; ok {
		t.Errorf("numeric rule applied to text value: %q", msg)
	}
}

func TestValidate_optionalEmptyFieldSkipsAllRules(t *testing.T) {
	draft := validDraft()
	delete(draft, "age")

	errs := Validate(registrationFields(), draft)
	if msg, ok := errs["age"]; ok {
		t.Errorf("optional absent field produced error: %q", msg)
	}
}

func TestValidate_confirms(t *testing.T) {
	draft := validDraft()
	draft["confirm_password"] = model.Text("different")

	errs := Validate(registrationFields(), draft)
	if errs["confirm_password"] != "Confirm password must match Password" {
		t.Errorf("confirms error = %q", errs["confirm_password"])
	}
}

func TestValidate_customMessage(t *testing.T) {
	fields := []model.FormFieldDescriptor{{
		FieldDescriptor: model.FieldDescriptor{Key: "sku", Label: "SKU", Type: model.TypeText},
		Validation:      &model.ValidationRules{Pattern: `^[A-Z]{3}-\d{4}$`, Message: "SKU must look like ABC-1234"},
	}}

	errs := Validate(fields, model.Record{"sku": model.Text("nope")})
	if errs["sku"] != "SKU must look like ABC-1234" {
		t.Errorf("custom message = %q", errs["sku"])
	}
}
