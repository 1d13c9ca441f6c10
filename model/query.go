package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SortDirection orders a sorted result set.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// FilterValue is the set of accepted values for one filter entry. A scalar
// filter is a single-element set. An empty set means "no constraint".
type FilterValue []string

// Empty reports whether the filter imposes no constraint: no entries, or
// only blank entries. Blank filter values are treated as "no constraint",
// never as "match nothing".
func (f FilterValue) Empty() bool {
	for _, v := range f {
		if v != "" {
			return false
		}
	}
	return true
}

// Accepts reports whether the given stringified field value is in the set.
func (f FilterValue) Accepts(s string) bool {
	for _, v := range f {
		if v != "" && v == s {
			return true
		}
	}
	return false
}

// UnmarshalJSON accepts a scalar (string, number, boolean), an array of
// scalars, or null. UI filter state serializes both single-select and
// multi-select controls through the same key.
func (f *FilterValue) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	toString := func(item any) (string, error) {
		switch s := item.(type) {
		case string:
			return s, nil
		case json.Number:
			return s.String(), nil
		case bool:
			return strconv.FormatBool(s), nil
		default:
			return "", fmt.Errorf("filter value: unsupported type %T", item)
		}
	}

	switch t := raw.(type) {
	case nil:
		*f = nil
	case []any:
		values := make(FilterValue, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			s, err := toString(item)
			if err != nil {
				return err
			}
			values = append(values, s)
		}
		*f = values
	default:
		s, err := toString(raw)
		if err != nil {
			return err
		}
		*f = FilterValue{s}
	}
	return nil
}

// QueryState is the caller-owned combination of search, filter, sort, and
// pagination parameters driving one query evaluation. It is created fresh
// per view session, mutated only by user interaction handlers, and read-only
// during evaluation: the engine never writes to it.
type QueryState struct {
	SearchText    string                 `json:"search_text,omitempty"`
	Filters       map[string]FilterValue `json:"filters,omitempty"`
	SortKey       string                 `json:"sort_key,omitempty"`
	SortDirection SortDirection          `json:"sort_direction,omitempty"`
	Page          int                    `json:"page"`
	PageSize      int                    `json:"page_size"`
}

// QueryResult is the output of one evaluation: the requested page of the
// narrowed and ordered set, plus aggregate counts over the whole set.
type QueryResult struct {
	Items      []Record `json:"items"`
	TotalCount int      `json:"total_count"`
	TotalPages int      `json:"total_pages"`
}
