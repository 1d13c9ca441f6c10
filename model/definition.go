package model

// DatasetDefinition is the root structure of a definition file. Each file
// declares one dataset's fields, its table defaults, its forms, and the
// actions exposed on its records.
type DatasetDefinition struct {
	Dataset      string             `yaml:"dataset"      json:"dataset"`
	Version      string             `yaml:"version"      json:"version"`
	Title        string             `yaml:"title"        json:"title"`
	Capabilities []string           `yaml:"capabilities" json:"capabilities"`
	Fields       []FieldDefinition  `yaml:"fields"       json:"fields"`
	DefaultSort  string             `yaml:"default_sort" json:"default_sort,omitempty"`
	SortDir      string             `yaml:"sort_dir"     json:"sort_dir,omitempty"`
	PageSize     int                `yaml:"page_size"    json:"page_size,omitempty"`
	Source       *SourceDefinition  `yaml:"source"       json:"source,omitempty"`
	Actions      []ActionDefinition `yaml:"actions"      json:"actions,omitempty"`
	Forms        []FormDefinition   `yaml:"forms"        json:"forms,omitempty"`

	// Checksum is computed at load time and not part of the YAML.
	Checksum string `yaml:"-" json:"-"`
	// SourceFile records the originating file path.
	SourceFile string `yaml:"-" json:"-"`
}

// FieldDefinition describes one field of the dataset's record type.
type FieldDefinition struct {
	Key        string         `yaml:"key"        json:"key"`
	Label      string         `yaml:"label"      json:"label"`
	Type       string         `yaml:"type"       json:"type"`
	Sortable   bool           `yaml:"sortable"   json:"sortable,omitempty"`
	Searchable bool           `yaml:"searchable" json:"searchable,omitempty"`
	Filterable bool           `yaml:"filterable" json:"filterable,omitempty"`
	Options    []StaticOption `yaml:"options"    json:"options,omitempty"`
	Width      string         `yaml:"width"      json:"width,omitempty"`
	Align      string         `yaml:"align"      json:"align,omitempty"`
}

// StaticOption is a label/value pair for select and multiselect fields.
type StaticOption struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
	Color string `yaml:"color" json:"color,omitempty"`
}

// SourceDefinition binds a dataset to an upstream service endpoint. When
// absent, the dataset is evaluated purely against caller-supplied records.
type SourceDefinition struct {
	ServiceID string `yaml:"service_id" json:"service_id"`
	Path      string `yaml:"path"       json:"path"`
}

// FormDefinition describes an input form attached to a dataset.
type FormDefinition struct {
	ID           string              `yaml:"id"           json:"id"`
	Title        string              `yaml:"title"        json:"title"`
	Capabilities []string            `yaml:"capabilities" json:"capabilities"`
	Sections     []SectionDefinition `yaml:"sections"     json:"sections"`
}

// SectionDefinition describes a named grouping of form fields.
type SectionDefinition struct {
	Key         string                `yaml:"key"         json:"key"`
	Title       string                `yaml:"title"       json:"title"`
	Description string                `yaml:"description" json:"description,omitempty"`
	Fields      []FormFieldDefinition `yaml:"fields"      json:"fields"`
}

// FormFieldDefinition describes a single input field in a form section.
type FormFieldDefinition struct {
	Key         string                `yaml:"key"         json:"key"`
	Label       string                `yaml:"label"       json:"label"`
	Type        string                `yaml:"type"        json:"type"`
	Required    bool                  `yaml:"required"    json:"required,omitempty"`
	Validation  *ValidationDefinition `yaml:"validation"  json:"validation,omitempty"`
	Confirms    string                `yaml:"confirms"    json:"confirms,omitempty"`
	Layout      string                `yaml:"layout"      json:"layout,omitempty"`
	Options     []StaticOption        `yaml:"options"     json:"options,omitempty"`
	Placeholder string                `yaml:"placeholder" json:"placeholder,omitempty"`
	HelpText    string                `yaml:"help_text"   json:"help_text,omitempty"`
}

// ValidationDefinition describes validation rules for a form field.
type ValidationDefinition struct {
	MinLength *int     `yaml:"min_length" json:"min_length,omitempty"`
	MaxLength *int     `yaml:"max_length" json:"max_length,omitempty"`
	Min       *float64 `yaml:"min"        json:"min,omitempty"`
	Max       *float64 `yaml:"max"        json:"max,omitempty"`
	Pattern   string   `yaml:"pattern"    json:"pattern,omitempty"`
	Message   string   `yaml:"message"    json:"message,omitempty"`
}

// ActionDefinition describes a record-bound UI action (button, menu item).
type ActionDefinition struct {
	Key          string                  `yaml:"key"          json:"key"`
	Label        string                  `yaml:"label"        json:"label"`
	Icon         string                  `yaml:"icon"         json:"icon,omitempty"`
	Style        string                  `yaml:"style"        json:"style,omitempty"`
	Capabilities []string                `yaml:"capabilities" json:"capabilities"`
	Type         string                  `yaml:"type"         json:"type"`
	NavigateTo   string                  `yaml:"navigate_to"  json:"navigate_to,omitempty"`
	Confirmation *ConfirmationDefinition `yaml:"confirmation" json:"confirmation,omitempty"`
	Conditions   []ConditionDefinition   `yaml:"conditions"   json:"conditions,omitempty"`
}

// ConfirmationDefinition describes a confirmation dialog.
type ConfirmationDefinition struct {
	Title   string `yaml:"title"   json:"title"`
	Message string `yaml:"message" json:"message"`
	Confirm string `yaml:"confirm" json:"confirm"`
	Cancel  string `yaml:"cancel"  json:"cancel,omitempty"`
	Style   string `yaml:"style"   json:"style,omitempty"`
}

// ConditionDefinition describes a record-dependent visibility/enablement rule.
type ConditionDefinition struct {
	Field    string `yaml:"field"    json:"field"`
	Operator string `yaml:"operator" json:"operator"`
	Value    any    `yaml:"value"    json:"value,omitempty"`
	Effect   string `yaml:"effect"   json:"effect"`
}
