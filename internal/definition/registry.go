package definition

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/stackpal/tessera/internal/schema"
	"github.com/stackpal/tessera/model"
)

// snapshot is an immutable collection of all definitions indexed by ID,
// with a validated Schema prebuilt per dataset.
type snapshot struct {
	datasets map[string]model.DatasetDefinition
	schemas  map[string]*schema.Schema
	forms    map[string]model.FormDefinition
	checksum string
}

// Registry is a read-optimized, thread-safe store of all loaded dataset
// definitions. It uses atomic pointer swap for lock-free concurrent reads.
type Registry struct {
	snap atomic.Pointer[snapshot]
}

// NewRegistry creates a Registry from the given definitions. It fails when
// any dataset's fields do not form a valid schema.
func NewRegistry(defs []model.DatasetDefinition) (*Registry, error) {
	r := &Registry{}
	if err := r.Replace(defs); err != nil {
		return nil, err
	}
	return r, nil
}

// Replace atomically swaps the registry contents with a new snapshot built
// from the given definitions. On error the previous snapshot stays live.
func (r *Registry) Replace(defs []model.DatasetDefinition) error {
	s := &snapshot{
		datasets: make(map[string]model.DatasetDefinition, len(defs)),
		schemas:  make(map[string]*schema.Schema, len(defs)),
		forms:    make(map[string]model.FormDefinition),
	}

	var checksumParts []string

	for _, def := range defs {
		sc, err := schema.New(FieldDescriptors(def.Fields))
		if err != nil {
			return fmt.Errorf("dataset %s: %w", def.Dataset, err)
		}

		s.datasets[def.Dataset] = def
		s.schemas[def.Dataset] = sc
		checksumParts = append(checksumParts, def.Checksum)

		for _, f := range def.Forms {
			s.forms[f.ID] = f
		}
	}

	sort.Strings(checksumParts)
	combined := strings.Join(checksumParts, ":")
	s.checksum = fmt.Sprintf("%x", sha256.Sum256([]byte(combined)))

	r.snap.Store(s)
	return nil
}

func (r *Registry) current() *snapshot {
	return r.snap.Load()
}

// Dataset returns the dataset definition with the given ID.
func (r *Registry) Dataset(datasetID string) (model.DatasetDefinition, bool) {
	d, ok := r.current().datasets[datasetID]
	return d, ok
}

// Schema returns the validated schema for the given dataset.
func (r *Registry) Schema(datasetID string) (*schema.Schema, bool) {
	s, ok := r.current().schemas[datasetID]
	return s, ok
}

// Form returns the form definition with the given ID.
func (r *Registry) Form(formID string) (model.FormDefinition, bool) {
	f, ok := r.current().forms[formID]
	return f, ok
}

// AllDatasets returns all dataset definitions sorted by dataset ID.
func (r *Registry) AllDatasets() []model.DatasetDefinition {
	s := r.current()
	defs := make([]model.DatasetDefinition, 0, len(s.datasets))
	for _, d := range s.datasets {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Dataset < defs[j].Dataset })
	return defs
}

// Checksum returns the combined checksum of all loaded definitions.
func (r *Registry) Checksum() string {
	return r.current().checksum
}

// FieldDescriptors resolves field definitions into descriptors.
func FieldDescriptors(fields []model.FieldDefinition) []model.FieldDescriptor {
	out := make([]model.FieldDescriptor, 0, len(fields))
	for _, fd := range fields {
		out = append(out, model.FieldDescriptor{
			Key:        fd.Key,
			Label:      fd.Label,
			Type:       model.ValueType(fd.Type),
			Sortable:   fd.Sortable,
			Searchable: fd.Searchable,
			Filterable: fd.Filterable,
			Options:    optionDescriptors(fd.Options),
			Width:      fd.Width,
			Align:      fd.Align,
		})
	}
	return out
}

func optionDescriptors(options []model.StaticOption) []model.OptionDescriptor {
	if len(options) == 0 {
		return nil
	}
	out := make([]model.OptionDescriptor, 0, len(options))
	for _, opt := range options {
		out = append(out, model.OptionDescriptor{Value: opt.Value, Label: opt.Label, Color: opt.Color})
	}
	return out
}
