package metadata

import (
	"github.com/stackpal/tessera/internal/form"
	"github.com/stackpal/tessera/model"
)

// FormProvider resolves form definitions into descriptors and validates
// submitted drafts against them.
type FormProvider struct {
	registry FormRegistry
}

// FormRegistry is the slice of the definition registry the provider needs.
type FormRegistry interface {
	Form(formID string) (model.FormDefinition, bool)
}

// NewFormProvider creates a FormProvider over the given registry.
func NewFormProvider(registry FormRegistry) *FormProvider {
	return &FormProvider{registry: registry}
}

// GetForm resolves a form definition into a descriptor with fields grouped
// into their sections. Returns NOT_FOUND for unknown forms and FORBIDDEN
// when the caller lacks the form's capabilities.
func (p *FormProvider) GetForm(caps model.CapabilitySet, formID string) (model.FormDescriptor, error) {
	def, ok := p.registry.Form(formID)
	if !ok {
		return model.FormDescriptor{}, model.NewNotFoundError("form not found: " + formID)
	}
	if len(def.Capabilities) > 0 && !caps.HasAll(def.Capabilities...) {
		return model.FormDescriptor{}, model.NewForbiddenError("missing capability for form " + formID)
	}

	sections, fields := resolveFormFields(def)
	return model.FormDescriptor{
		ID:       def.ID,
		Title:    def.Title,
		Sections: form.GroupSections(sections, fields),
	}, nil
}

// ValidateDraft validates a draft record against the form's field rules.
// The returned map is empty when the draft is valid.
func (p *FormProvider) ValidateDraft(caps model.CapabilitySet, formID string, draft model.Record) (form.ErrorMap, error) {
	def, ok := p.registry.Form(formID)
	if !ok {
		return nil, model.NewNotFoundError("form not found: " + formID)
	}
	if len(def.Capabilities) > 0 && !caps.HasAll(def.Capabilities...) {
		return nil, model.NewForbiddenError("missing capability for form " + formID)
	}

	_, fields := resolveFormFields(def)
	return form.Validate(fields, draft), nil
}

// resolveFormFields flattens a form definition into section descriptors
// and form field descriptors tagged with their section keys.
func resolveFormFields(def model.FormDefinition) ([]model.SectionDescriptor, []model.FormFieldDescriptor) {
	sections := make([]model.SectionDescriptor, 0, len(def.Sections))
	var fields []model.FormFieldDescriptor

	for _, sd := range def.Sections {
		sections = append(sections, model.SectionDescriptor{
			Key:         sd.Key,
			Title:       sd.Title,
			Description: sd.Description,
		})
		for _, fd := range sd.Fields {
			fields = append(fields, formFieldDescriptor(fd, sd.Key))
		}
	}
	return sections, fields
}

func formFieldDescriptor(fd model.FormFieldDefinition, sectionKey string) model.FormFieldDescriptor {
	out := model.FormFieldDescriptor{
		FieldDescriptor: model.FieldDescriptor{
			Key:     fd.Key,
			Label:   fd.Label,
			Type:    model.ValueType(fd.Type),
			Options: staticOptions(fd.Options),
		},
		Required:    fd.Required,
		Section:     sectionKey,
		Layout:      model.FieldLayout(fd.Layout),
		Confirms:    fd.Confirms,
		Placeholder: fd.Placeholder,
		HelpText:    fd.HelpText,
	}
	if out.Layout == "" {
		out.Layout = model.LayoutFull
	}
	if fd.Validation != nil {
		out.Validation = &model.ValidationRules{
			MinLength: fd.Validation.MinLength,
			MaxLength: fd.Validation.MaxLength,
			Min:       fd.Validation.Min,
			Max:       fd.Validation.Max,
			Pattern:   fd.Validation.Pattern,
			Message:   fd.Validation.Message,
		}
	}
	return out
}

func staticOptions(options []model.StaticOption) []model.OptionDescriptor {
	if len(options) == 0 {
		return nil
	}
	out := make([]model.OptionDescriptor, 0, len(options))
	for _, opt := range options {
		out = append(out, model.OptionDescriptor{Value: opt.Value, Label: opt.Label, Color: opt.Color})
	}
	return out
}
