// Package query evaluates declarative query state against in-memory record
// sets: search, filter, sort, and paginate, in that fixed order.
package query

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/stackpal/tessera/internal/schema"
	"github.com/stackpal/tessera/model"
)

// Engine evaluates QueryState against record slices using a Schema for
// field capability and type information. The zero-cost pipeline is
// search -> filter -> sort -> paginate; each stage narrows or reorders,
// never mutates records. An Engine is safe for concurrent use.
type Engine struct {
	locale language.Tag
}

// NewEngine returns an Engine ordering text with locale-neutral collation.
func NewEngine() *Engine {
	return &Engine{locale: language.Und}
}

// NewEngineForLocale returns an Engine ordering text according to the
// given locale's collation rules.
func NewEngineForLocale(tag language.Tag) *Engine {
	return &Engine{locale: tag}
}

// Evaluate runs the full pipeline over records and returns the requested
// page. The input slice and its records are never modified; Items is
// always non-nil and freshly allocated. Unknown or non-capable keys in
// the state (search fields, filter keys, sort key) are skipped rather
// than rejected: stale client state narrows gracefully instead of
// breaking the view.
func (e *Engine) Evaluate(sc *schema.Schema, records []model.Record, state model.QueryState) model.QueryResult {
	working := e.applySearch(sc, records, state.SearchText)
	working = e.applyFilters(sc, working, state.Filters)
	e.applySort(sc, working, state)
	return paginate(working, state.Page, state.PageSize)
}

// applySearch keeps records where any searchable field's stringified value
// contains the needle, case-insensitively. A blank needle keeps everything.
func (e *Engine) applySearch(sc *schema.Schema, records []model.Record, text string) []model.Record {
	needle := strings.ToLower(strings.TrimSpace(text))
	out := make([]model.Record, 0, len(records))
	if needle == "" {
		out = append(out, records...)
		return out
	}

	searchable := sc.SearchableFields()
	for _, rec := range records {
		for _, fd := range searchable {
			v, ok := rec[fd.Key]
			if !ok || v.IsNull() {
				continue
			}
			if searchMatches(v, needle) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// searchMatches tests lowercase substring containment. Multi-valued fields
// match per element, not against a joined representation.
func searchMatches(v model.Value, needle string) bool {
	if list, isList := v.AsList(); isList {
		for _, item := range list {
			if strings.Contains(strings.ToLower(item), needle) {
				return true
			}
		}
		return false
	}
	return strings.Contains(strings.ToLower(v.String()), needle)
}

// applyFilters narrows by each active filter entry in turn. Entries whose
// key is unknown or not filterable are skipped. Filters combine with AND
// across keys; within one key the accepted values combine with OR.
func (e *Engine) applyFilters(sc *schema.Schema, records []model.Record, filters map[string]model.FilterValue) []model.Record {
	for key, accepted := range filters {
		if accepted.Empty() {
			continue
		}
		fd, ok := sc.Field(key)
		if !ok || !fd.Filterable {
			continue
		}
		narrowed := records[:0:0]
		for _, rec := range records {
			if filterMatches(rec, fd, accepted) {
				narrowed = append(narrowed, rec)
			}
		}
		records = narrowed
	}
	return records
}

// filterMatches reports whether the record's value for the field is in the
// accepted set. Multi-valued fields match when any element is accepted;
// scalar fields match on their stringified value. Absent and null values
// never match an active filter.
func filterMatches(rec model.Record, fd model.FieldDescriptor, accepted model.FilterValue) bool {
	v, ok := rec[fd.Key]
	if !ok || v.IsNull() {
		return false
	}
	if list, isList := v.AsList(); isList {
		for _, item := range list {
			if accepted.Accepts(item) {
				return true
			}
		}
		return false
	}
	return accepted.Accepts(v.String())
}

// applySort orders records in place by the state's sort key. The sort is
// stable: records comparing equal keep their prior relative order, so a
// re-sort of already-sorted input is a no-op. Descending reverses the
// comparator, not the slice, which preserves stability. An unknown or
// non-sortable key leaves the order untouched.
func (e *Engine) applySort(sc *schema.Schema, records []model.Record, state model.QueryState) {
	if state.SortKey == "" {
		return
	}
	fd, ok := sc.Field(state.SortKey)
	if !ok || !fd.Sortable {
		return
	}

	col := collate.New(e.locale)
	desc := state.SortDirection == model.SortDesc
	sort.SliceStable(records, func(i, j int) bool {
		c := compareFieldValues(fd, records[i][fd.Key], records[j][fd.Key], col)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// paginate slices out the requested page. Page and page size below one are
// normalized to one. A page past the end yields empty items; the counts
// still describe the whole narrowed set.
func paginate(records []model.Record, page, pageSize int) model.QueryResult {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}

	total := len(records)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start >= total {
		return model.QueryResult{Items: []model.Record{}, TotalCount: total, TotalPages: totalPages}
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	items := make([]model.Record, end-start)
	copy(items, records[start:end])
	return model.QueryResult{Items: items, TotalCount: total, TotalPages: totalPages}
}
