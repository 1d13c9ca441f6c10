package model

// ValueType is the declared type of a field in a schema. It drives
// comparison semantics in the query engine and render hints downstream.
type ValueType string

const (
	TypeText        ValueType = "text"
	TypeEmail       ValueType = "email"
	TypeNumber      ValueType = "number"
	TypeDate        ValueType = "date"
	TypeDateTime    ValueType = "datetime"
	TypeBoolean     ValueType = "boolean"
	TypeSelect      ValueType = "select"
	TypeMultiSelect ValueType = "multiselect"
	TypeCurrency    ValueType = "currency"
	TypePercentage  ValueType = "percentage"
	TypeURL         ValueType = "url"
	TypeImage       ValueType = "image"
	TypeTel         ValueType = "tel"
)

// Numeric reports whether values of this type compare numerically.
func (t ValueType) Numeric() bool {
	return t == TypeNumber || t == TypeCurrency || t == TypePercentage
}

// Temporal reports whether values of this type compare chronologically.
func (t ValueType) Temporal() bool {
	return t == TypeDate || t == TypeDateTime
}

// FieldDescriptor is the resolved metadata for one field of a record type.
// Width and Align are presentation hints passed through untouched; the
// engine never interprets them.
type FieldDescriptor struct {
	Key        string             `json:"key"`
	Label      string             `json:"label"`
	Type       ValueType          `json:"type"`
	Sortable   bool               `json:"sortable,omitempty"`
	Searchable bool               `json:"searchable,omitempty"`
	Filterable bool               `json:"filterable,omitempty"`
	Options    []OptionDescriptor `json:"options,omitempty"`
	Width      string             `json:"width,omitempty"`
	Align      string             `json:"align,omitempty"`
}

// OptionDescriptor is a resolved option for select and multiselect fields.
type OptionDescriptor struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// FieldLayout is the width a form field occupies within its section.
type FieldLayout string

const (
	LayoutFull  FieldLayout = "full"
	LayoutHalf  FieldLayout = "half"
	LayoutThird FieldLayout = "third"
)

// ValidationRules holds the optional constraints attached to a form field.
// Nil pointers mean the constraint is absent. Message, when set, replaces
// the rule-specific error text for any constraint in this set.
type ValidationRules struct {
	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// FormFieldDescriptor extends FieldDescriptor with input concerns. Confirms
// names another field in the same form whose value this field must equal
// (the password-confirmation pattern); the error is reported on this field.
type FormFieldDescriptor struct {
	FieldDescriptor

	Required    bool             `json:"required,omitempty"`
	Validation  *ValidationRules `json:"validation,omitempty"`
	Section     string           `json:"section,omitempty"`
	Layout      FieldLayout      `json:"layout,omitempty"`
	Confirms    string           `json:"confirms,omitempty"`
	Placeholder string           `json:"placeholder,omitempty"`
	HelpText    string           `json:"help_text,omitempty"`
}

// SectionDescriptor is a named grouping of form fields. Purely
// organizational; it carries no behavior.
type SectionDescriptor struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ResolvedSection pairs a section with the fields assigned to it.
type ResolvedSection struct {
	SectionDescriptor

	Fields []FormFieldDescriptor `json:"fields"`
}

// TableDescriptor is the resolved table surface for one dataset: columns,
// filter controls, and row actions, plus paging defaults.
type TableDescriptor struct {
	Dataset     string             `json:"dataset"`
	Title       string             `json:"title"`
	Columns     []FieldDescriptor  `json:"columns"`
	Filters     []FilterDescriptor `json:"filters,omitempty"`
	Actions     []ActionDescriptor `json:"actions,omitempty"`
	DefaultSort string             `json:"default_sort,omitempty"`
	SortDir     SortDirection      `json:"sort_dir,omitempty"`
	PageSize    int                `json:"page_size"`
}

// FilterDescriptor describes one filter control above a table.
type FilterDescriptor struct {
	Field   string             `json:"field"`
	Label   string             `json:"label"`
	Type    ValueType          `json:"type"`
	Options []OptionDescriptor `json:"options,omitempty"`
}

// FormDescriptor is the resolved form sent to the frontend.
type FormDescriptor struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Sections []ResolvedSection `json:"sections"`
}

// ActionDescriptor is a resolved, conditionally visible operation bound to a
// record. Conditions the server could not evaluate (record not supplied) are
// passed through for client-side evaluation.
type ActionDescriptor struct {
	Key          string                  `json:"key"`
	Label        string                  `json:"label"`
	Icon         string                  `json:"icon,omitempty"`
	Style        string                  `json:"style,omitempty"`
	Type         string                  `json:"type"`
	Enabled      bool                    `json:"enabled"`
	Visible      bool                    `json:"visible"`
	NavigateTo   string                  `json:"navigate_to,omitempty"`
	Confirmation *ConfirmationDescriptor `json:"confirmation,omitempty"`
	Conditions   []ConditionDescriptor   `json:"conditions,omitempty"`
}

// ConfirmationDescriptor describes a confirmation dialog.
type ConfirmationDescriptor struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Confirm string `json:"confirm"`
	Cancel  string `json:"cancel,omitempty"`
	Style   string `json:"style,omitempty"`
}

// ConditionDescriptor describes a record-dependent visibility or enablement
// rule.
type ConditionDescriptor struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value,omitempty"`
	Effect   string `json:"effect"`
}
