package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the runtime type carried by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindBool
	KindTextList
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindTextList:
		return "text_list"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the field value types a record may carry:
// text, number, boolean, list of text, or null. It replaces the untyped
// maps of the upstream JSON payloads so engine code never handles `any`.
// The zero Value is null.
type Value struct {
	kind    Kind
	text    string
	num     float64
	boolean bool
	list    []string
}

// Null returns the null Value.
func Null() Value {
	return Value{}
}

// Text returns a text Value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Number returns a numeric Value.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Bool returns a boolean Value.
func Bool(b bool) Value {
	return Value{kind: KindBool, boolean: b}
}

// TextList returns a list Value. The items are copied so the caller's slice
// stays independent.
func TextList(items ...string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: KindTextList, list: cp}
}

// Kind returns the runtime kind of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// IsEmpty reports whether the value is null, an empty string, or an empty
// list. Numbers and booleans are never empty.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindText:
		return v.text == ""
	case KindTextList:
		return len(v.list) == 0
	default:
		return false
	}
}

// AsText returns the string payload and whether the value is text.
func (v Value) AsText() (string, bool) {
	return v.text, v.kind == KindText
}

// AsNumber returns the numeric payload and whether the value is a number.
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// AsBool returns the boolean payload and whether the value is a boolean.
func (v Value) AsBool() (bool, bool) {
	return v.boolean, v.kind == KindBool
}

// AsList returns a copy of the list payload and whether the value is a list.
func (v Value) AsList() ([]string, bool) {
	if v.kind != KindTextList {
		return nil, false
	}
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp, true
}

// String returns the stringified form used for search containment, filter
// equality, and pattern validation. Numbers drop trailing zeros, booleans
// render as "true"/"false", lists join with ", ", null is the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.boolean)
	case KindTextList:
		return strings.Join(v.list, ", ")
	default:
		return ""
	}
}

// Equal reports deep equality of two values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == o.text
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.boolean == o.boolean
	case KindTextList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// MarshalJSON encodes the value as its natural JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.boolean)
	case KindTextList:
		return json.Marshal(v.list)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar or string array into a Value.
// JSON numbers become KindNumber, strings KindText, booleans KindBool,
// arrays KindTextList (non-string elements are stringified), null KindNull.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	switch t := raw.(type) {
	case nil:
		*v = Null()
	case string:
		*v = Text(t)
	case bool:
		*v = Bool(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return fmt.Errorf("value: invalid number %q: %w", t.String(), err)
		}
		*v = Number(f)
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			switch s := item.(type) {
			case string:
				items = append(items, s)
			case json.Number:
				items = append(items, s.String())
			case bool:
				items = append(items, strconv.FormatBool(s))
			case nil:
				// Skip null elements.
			default:
				return fmt.Errorf("value: unsupported array element type %T", item)
			}
		}
		*v = Value{kind: KindTextList, list: items}
	default:
		return fmt.Errorf("value: unsupported JSON type %T", raw)
	}
	return nil
}

// Record is a single entity instance as a field-key→value mapping. Records
// are owned by the caller; the engine never mutates one in place.
type Record map[string]Value

// ID returns the record's identity field, or the empty string when absent.
func (r Record) ID() string {
	return r["id"].String()
}

// Clone returns a shallow-independent copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	cp := make(Record, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}
