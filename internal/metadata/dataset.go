// Package metadata resolves dataset definitions into the descriptors the
// frontend renders: table surfaces, forms, and record actions, filtered by
// the caller's capabilities.
package metadata

import (
	"github.com/stackpal/tessera/internal/action"
	"github.com/stackpal/tessera/internal/definition"
	"github.com/stackpal/tessera/model"
)

// DefaultPageSize applies when a dataset definition does not set one.
const DefaultPageSize = 25

// TableProvider resolves dataset definitions into table descriptors.
type TableProvider struct {
	registry *definition.Registry
	actions  *action.Resolver
}

// NewTableProvider creates a TableProvider over the given registry.
func NewTableProvider(registry *definition.Registry) *TableProvider {
	return &TableProvider{
		registry: registry,
		actions:  action.NewResolver(),
	}
}

// GetTable resolves the table descriptor for a dataset. It returns
// NOT_FOUND for unknown datasets and FORBIDDEN when the caller lacks the
// dataset's capabilities. Actions are resolved without a record, so
// record-dependent conditions pass through for client-side evaluation.
func (p *TableProvider) GetTable(caps model.CapabilitySet, datasetID string) (model.TableDescriptor, error) {
	def, ok := p.registry.Dataset(datasetID)
	if !ok {
		return model.TableDescriptor{}, model.NewNotFoundError("dataset not found: " + datasetID)
	}
	if len(def.Capabilities) > 0 && !caps.HasAll(def.Capabilities...) {
		return model.TableDescriptor{}, model.NewForbiddenError("missing capability for dataset " + datasetID)
	}

	sc, ok := p.registry.Schema(datasetID)
	if !ok {
		return model.TableDescriptor{}, model.NewInternalError()
	}

	pageSize := def.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	desc := model.TableDescriptor{
		Dataset:     def.Dataset,
		Title:       def.Title,
		Columns:     sc.Fields(),
		Filters:     filterControls(sc.FilterableFields()),
		Actions:     p.actions.Resolve(caps, def.Actions, nil),
		DefaultSort: def.DefaultSort,
		SortDir:     model.SortDirection(def.SortDir),
		PageSize:    pageSize,
	}
	return desc, nil
}

// Datasets lists the dataset definitions the caller may see, keeping only
// those whose capabilities the caller holds.
func (p *TableProvider) Datasets(caps model.CapabilitySet) []model.DatasetDefinition {
	visible := []model.DatasetDefinition{}
	for _, def := range p.registry.AllDatasets() {
		if len(def.Capabilities) > 0 && !caps.HasAll(def.Capabilities...) {
			continue
		}
		visible = append(visible, def)
	}
	return visible
}

// filterControls derives one filter control per filterable field.
func filterControls(fields []model.FieldDescriptor) []model.FilterDescriptor {
	if len(fields) == 0 {
		return nil
	}
	out := make([]model.FilterDescriptor, 0, len(fields))
	for _, fd := range fields {
		out = append(out, model.FilterDescriptor{
			Field:   fd.Key,
			Label:   fd.Label,
			Type:    fd.Type,
			Options: fd.Options,
		})
	}
	return out
}
