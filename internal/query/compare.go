package query

import (
	"strconv"
	"time"

	"golang.org/x/text/collate"

	"github.com/stackpal/tessera/model"
)

// temporalLayouts are tried in order when parsing date and datetime values.
var temporalLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// compareFieldValues orders two record values under the field's declared
// type. Null (and absent) values order before any non-null value so they
// gather at the top of an ascending sort. Returns a negative number,
// zero, or a positive number as a sorts before, equal to, or after b.
func compareFieldValues(fd model.FieldDescriptor, a, b model.Value, col *collate.Collator) int {
	aNull := a.IsNull()
	bNull := b.IsNull()
	switch {
	case aNull && bNull:
		return 0
	case aNull:
		return -1
	case bNull:
		return 1
	}

	switch {
	case fd.Type.Numeric():
		return compareNumeric(a, b, col)
	case fd.Type.Temporal():
		return compareTemporal(a, b, col)
	case fd.Type == model.TypeBoolean:
		return compareBoolean(a, b, col)
	default:
		return col.CompareString(a.String(), b.String())
	}
}

// compareNumeric coerces both sides to float64, accepting numeric text for
// records that arrived with stringified numbers. Values that will not
// coerce fall back to collated string order.
func compareNumeric(a, b model.Value, col *collate.Collator) int {
	af, aok := numericValue(a)
	bf, bok := numericValue(b)
	if !aok || !bok {
		return col.CompareString(a.String(), b.String())
	}
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func numericValue(v model.Value) (float64, bool) {
	if f, ok := v.AsNumber(); ok {
		return f, true
	}
	if s, ok := v.AsText(); ok {
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// compareTemporal parses both sides as timestamps. Unparseable values fall
// back to collated string order, which for ISO-style dates still yields
// chronological results.
func compareTemporal(a, b model.Value, col *collate.Collator) int {
	at, aok := temporalValue(a)
	bt, bok := temporalValue(b)
	if !aok || !bok {
		return col.CompareString(a.String(), b.String())
	}
	switch {
	case at.Before(bt):
		return -1
	case at.After(bt):
		return 1
	default:
		return 0
	}
}

func temporalValue(v model.Value) (time.Time, bool) {
	s := v.String()
	for _, layout := range temporalLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// compareBoolean orders false before true. Non-boolean values are coerced
// through their string form ("false" < "true" matches the boolean order).
func compareBoolean(a, b model.Value, col *collate.Collator) int {
	ab, aok := a.AsBool()
	bb, bok := b.AsBool()
	if !aok || !bok {
		return col.CompareString(a.String(), b.String())
	}
	switch {
	case ab == bb:
		return 0
	case !ab:
		return -1
	default:
		return 1
	}
}
