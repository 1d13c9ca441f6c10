// Package schema holds the resolved field metadata for one dataset and
// answers capability questions about its fields. A Schema is immutable
// after construction and safe for concurrent use.
package schema

import (
	"github.com/stackpal/tessera/model"
)

// Schema is the validated field registry for one dataset. Field order is
// registration order and is preserved by every accessor.
type Schema struct {
	fields []model.FieldDescriptor
	byKey  map[string]int
}

// New builds a Schema from the given fields. It fails on the first
// structural defect: a duplicate field key, a select or multiselect field
// without options, or a field with duplicate option values. A failed
// schema must not be used.
func New(fields []model.FieldDescriptor) (*Schema, error) {
	s := &Schema{
		fields: make([]model.FieldDescriptor, 0, len(fields)),
		byKey:  make(map[string]int, len(fields)),
	}
	for _, fd := range fields {
		if err := s.register(fd); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Schema) register(fd model.FieldDescriptor) error {
	if _, exists := s.byKey[fd.Key]; exists {
		return model.NewDuplicateFieldKeyError(fd.Key)
	}
	if fd.Type == model.TypeSelect || fd.Type == model.TypeMultiSelect {
		if len(fd.Options) == 0 {
			return model.NewMissingOptionsError(fd.Key)
		}
		seen := make(map[string]bool, len(fd.Options))
		for _, opt := range fd.Options {
			if seen[opt.Value] {
				return model.NewDuplicateOptionValueError(fd.Key, opt.Value)
			}
			seen[opt.Value] = true
		}
	}
	s.byKey[fd.Key] = len(s.fields)
	s.fields = append(s.fields, fd)
	return nil
}

// Lookup returns the descriptor for key, or an UNKNOWN_FIELD_KEY error when
// the key is not registered. Use Lookup when an unknown key is a caller bug.
func (s *Schema) Lookup(key string) (model.FieldDescriptor, error) {
	idx, ok := s.byKey[key]
	if !ok {
		return model.FieldDescriptor{}, model.NewUnknownFieldKeyError(key)
	}
	return s.fields[idx], nil
}

// Field returns the descriptor for key and whether it exists. Use Field on
// paths where unknown keys are tolerated and skipped.
func (s *Schema) Field(key string) (model.FieldDescriptor, bool) {
	idx, ok := s.byKey[key]
	if !ok {
		return model.FieldDescriptor{}, false
	}
	return s.fields[idx], true
}

// Has reports whether key is registered.
func (s *Schema) Has(key string) bool {
	_, ok := s.byKey[key]
	return ok
}

// Fields returns all descriptors in registration order. The returned slice
// is a copy; callers may modify it freely.
func (s *Schema) Fields() []model.FieldDescriptor {
	out := make([]model.FieldDescriptor, len(s.fields))
	copy(out, s.fields)
	return out
}

// Len returns the number of registered fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// SortableFields returns the descriptors flagged sortable, in registration
// order.
func (s *Schema) SortableFields() []model.FieldDescriptor {
	return s.selectFields(func(fd model.FieldDescriptor) bool { return fd.Sortable })
}

// SearchableFields returns the descriptors flagged searchable, in
// registration order.
func (s *Schema) SearchableFields() []model.FieldDescriptor {
	return s.selectFields(func(fd model.FieldDescriptor) bool { return fd.Searchable })
}

// FilterableFields returns the descriptors flagged filterable, in
// registration order.
func (s *Schema) FilterableFields() []model.FieldDescriptor {
	return s.selectFields(func(fd model.FieldDescriptor) bool { return fd.Filterable })
}

func (s *Schema) selectFields(keep func(model.FieldDescriptor) bool) []model.FieldDescriptor {
	var out []model.FieldDescriptor
	for _, fd := range s.fields {
		if keep(fd) {
			out = append(out, fd)
		}
	}
	return out
}
