package definition

import (
	"fmt"
	"regexp"

	"github.com/stackpal/tessera/model"
)

// VError describes a single validation error in a definition.
type VError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e VError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validator checks dataset definitions structurally and referentially
// before they enter the registry.
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks all definitions and returns every problem found rather
// than stopping at the first.
func (v *Validator) Validate(defs []model.DatasetDefinition) []VError {
	var errs []VError
	seen := make(map[string]bool, len(defs))
	for i, def := range defs {
		prefix := fmt.Sprintf("definitions[%d]", i)
		if def.Dataset != "" && seen[def.Dataset] {
			errs = append(errs, VError{
				Path:    prefix + ".dataset",
				Code:    "DUPLICATE",
				Message: fmt.Sprintf("dataset %q is defined more than once", def.Dataset),
			})
		}
		seen[def.Dataset] = true
		errs = append(errs, v.validateDataset(prefix, def)...)
	}
	return errs
}

var validValueTypes = map[string]bool{
	"text": true, "email": true, "number": true, "date": true,
	"datetime": true, "boolean": true, "select": true, "multiselect": true,
	"currency": true, "percentage": true, "url": true, "image": true, "tel": true,
}

var validSortDirs = map[string]bool{"": true, "asc": true, "desc": true}

func (v *Validator) validateDataset(prefix string, def model.DatasetDefinition) []VError {
	var errs []VError

	if def.Dataset == "" {
		errs = append(errs, VError{Path: prefix + ".dataset", Code: "REQUIRED", Message: "dataset is required"})
	}
	if def.Version == "" {
		errs = append(errs, VError{Path: prefix + ".version", Code: "REQUIRED", Message: "version is required"})
	}
	if def.Title == "" {
		errs = append(errs, VError{Path: prefix + ".title", Code: "REQUIRED", Message: "title is required"})
	}
	if len(def.Fields) == 0 {
		errs = append(errs, VError{Path: prefix + ".fields", Code: "REQUIRED", Message: "at least one field is required"})
	}
	if def.PageSize < 0 || def.PageSize > 200 {
		errs = append(errs, VError{Path: prefix + ".page_size", Code: "RANGE", Message: "page_size must be 0-200"})
	}
	if !validSortDirs[def.SortDir] {
		errs = append(errs, VError{Path: prefix + ".sort_dir", Code: "INVALID_ENUM", Message: fmt.Sprintf("invalid sort_dir %q", def.SortDir)})
	}

	fieldKeys := make(map[string]model.FieldDefinition, len(def.Fields))
	for i, fd := range def.Fields {
		fp := fmt.Sprintf("%s.fields[%d]", prefix, i)
		if fd.Key == "" {
			errs = append(errs, VError{Path: fp + ".key", Code: "REQUIRED", Message: "key is required"})
		}
		if fd.Label == "" {
			errs = append(errs, VError{Path: fp + ".label", Code: "REQUIRED", Message: "label is required"})
		}
		if fd.Type == "" {
			errs = append(errs, VError{Path: fp + ".type", Code: "REQUIRED", Message: "type is required"})
		} else if !validValueTypes[fd.Type] {
			errs = append(errs, VError{Path: fp + ".type", Code: "INVALID_ENUM", Message: fmt.Sprintf("invalid type %q", fd.Type)})
		}
		if _, dup := fieldKeys[fd.Key]; dup && fd.Key != "" {
			errs = append(errs, VError{Path: fp + ".key", Code: "DUPLICATE", Message: fmt.Sprintf("field key %q is defined more than once", fd.Key)})
		}
		fieldKeys[fd.Key] = fd
	}

	// default_sort must name a sortable field.
	if def.DefaultSort != "" {
		fd, ok := fieldKeys[def.DefaultSort]
		if !ok {
			errs = append(errs, VError{
				Path:    prefix + ".default_sort",
				Code:    "REF_NOT_FOUND",
				Message: fmt.Sprintf("field %q not found", def.DefaultSort),
			})
		} else if !fd.Sortable {
			errs = append(errs, VError{
				Path:    prefix + ".default_sort",
				Code:    "NOT_SORTABLE",
				Message: fmt.Sprintf("field %q is not sortable", def.DefaultSort),
			})
		}
	}

	if def.Source != nil {
		sp := prefix + ".source"
		if def.Source.ServiceID == "" {
			errs = append(errs, VError{Path: sp + ".service_id", Code: "REQUIRED", Message: "service_id is required"})
		}
		if def.Source.Path == "" {
			errs = append(errs, VError{Path: sp + ".path", Code: "REQUIRED", Message: "path is required"})
		}
	}

	for i, a := range def.Actions {
		ap := fmt.Sprintf("%s.actions[%d]", prefix, i)
		errs = append(errs, v.validateAction(ap, a)...)
	}
	for i, f := range def.Forms {
		fp := fmt.Sprintf("%s.forms[%d]", prefix, i)
		errs = append(errs, v.validateForm(fp, f)...)
	}

	return errs
}

var validActionTypes = map[string]bool{"command": true, "navigate": true}

func (v *Validator) validateAction(prefix string, a model.ActionDefinition) []VError {
	var errs []VError

	if a.Key == "" {
		errs = append(errs, VError{Path: prefix + ".key", Code: "REQUIRED", Message: "key is required"})
	}
	if a.Label == "" {
		errs = append(errs, VError{Path: prefix + ".label", Code: "REQUIRED", Message: "label is required"})
	}
	if a.Type == "" {
		errs = append(errs, VError{Path: prefix + ".type", Code: "REQUIRED", Message: "type is required"})
	} else if !validActionTypes[a.Type] {
		errs = append(errs, VError{Path: prefix + ".type", Code: "INVALID_ENUM", Message: fmt.Sprintf("invalid action type %q", a.Type)})
	}
	if a.Type == "navigate" && a.NavigateTo == "" {
		errs = append(errs, VError{Path: prefix + ".navigate_to", Code: "REQUIRED", Message: "navigate_to is required for navigate actions"})
	}

	return errs
}

func (v *Validator) validateForm(prefix string, f model.FormDefinition) []VError {
	var errs []VError

	if f.ID == "" {
		errs = append(errs, VError{Path: prefix + ".id", Code: "REQUIRED", Message: "id is required"})
	}
	if f.Title == "" {
		errs = append(errs, VError{Path: prefix + ".title", Code: "REQUIRED", Message: "title is required"})
	}
	if len(f.Sections) == 0 {
		errs = append(errs, VError{Path: prefix + ".sections", Code: "REQUIRED", Message: "at least one section is required"})
	}

	formFields := make(map[string]bool)
	for _, s := range f.Sections {
		for _, fd := range s.Fields {
			formFields[fd.Key] = true
		}
	}

	for i, s := range f.Sections {
		sp := fmt.Sprintf("%s.sections[%d]", prefix, i)
		if s.Key == "" {
			errs = append(errs, VError{Path: sp + ".key", Code: "REQUIRED", Message: "key is required"})
		}
		for j, fd := range s.Fields {
			fp := fmt.Sprintf("%s.fields[%d]", sp, j)
			if fd.Key == "" {
				errs = append(errs, VError{Path: fp + ".key", Code: "REQUIRED", Message: "key is required"})
			}
			if fd.Type != "" && !validValueTypes[fd.Type] {
				errs = append(errs, VError{Path: fp + ".type", Code: "INVALID_ENUM", Message: fmt.Sprintf("invalid type %q", fd.Type)})
			}
			// confirms must reference a field declared in the same form.
			if fd.Confirms != "" && !formFields[fd.Confirms] {
				errs = append(errs, VError{
					Path:    fp + ".confirms",
					Code:    "REF_NOT_FOUND",
					Message: fmt.Sprintf("confirmed field %q not found in form", fd.Confirms),
				})
			}
			if fd.Validation != nil && fd.Validation.Pattern != "" {
				if _, err := regexp.Compile(fd.Validation.Pattern); err != nil {
					errs = append(errs, VError{
						Path:    fp + ".validation.pattern",
						Code:    "INVALID_PATTERN",
						Message: fmt.Sprintf("pattern does not compile: %v", err),
					})
				}
			}
		}
	}

	return errs
}
