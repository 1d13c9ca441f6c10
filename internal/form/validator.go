// Package form validates record drafts against form field metadata and
// groups form fields into presentation sections.
package form

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/stackpal/tessera/model"
)

// ErrorMap maps field keys to human-readable error messages. An empty map
// means the draft is valid.
type ErrorMap map[string]string

// Validate checks the draft against each field's rules independently and
// returns the first failing rule's message per field. Rules never throw;
// the result is always a plain data value the caller renders as it sees
// fit.
//
// An absent or empty value on a non-required field passes without further
// checks: type, length, and pattern rules only ever run against values the
// user actually supplied.
func Validate(fields []model.FormFieldDescriptor, draft model.Record) ErrorMap {
	labels := make(map[string]string, len(fields))
	for _, fd := range fields {
		labels[fd.Key] = fd.Label
	}

	errs := make(ErrorMap)
	for _, fd := range fields {
		if msg := validateField(fd, draft, labels); msg != "" {
			errs[fd.Key] = msg
		}
	}
	return errs
}

func validateField(fd model.FormFieldDescriptor, draft model.Record, labels map[string]string) string {
	value, present := draft[fd.Key]
	empty := !present || value.IsEmpty()

	if fd.Required && empty {
		return fmt.Sprintf("%s is required", fd.Label)
	}
	if empty {
		return ""
	}

	if fd.Confirms != "" {
		if msg := checkConfirms(fd, value, draft, labels); msg != "" {
			return msg
		}
	}

	rules := fd.Validation
	if rules == nil {
		return ""
	}

	if s, isText := value.AsText(); isText {
		if rules.MinLength != nil && len([]rune(s)) < *rules.MinLength {
			return ruleMessage(rules, fmt.Sprintf("%s must be at least %d characters", fd.Label, *rules.MinLength))
		}
		if rules.MaxLength != nil && len([]rune(s)) > *rules.MaxLength {
			return ruleMessage(rules, fmt.Sprintf("%s must be at most %d characters", fd.Label, *rules.MaxLength))
		}
	}

	if rules.Pattern != "" {
		// An uncompilable pattern is a definition bug; skip rather than
		// block every submission on it.
		if re, err := regexp.Compile(rules.Pattern); err == nil {
			if !re.MatchString(value.String()) {
				return ruleMessage(rules, fmt.Sprintf("%s format is invalid", fd.Label))
			}
		}
	}

	if n, isNumber := numericDraftValue(value); isNumber {
		if rules.Min != nil && n < *rules.Min {
			return ruleMessage(rules, fmt.Sprintf("%s must be at least %s", fd.Label, formatBound(*rules.Min)))
		}
		if rules.Max != nil && n > *rules.Max {
			return ruleMessage(rules, fmt.Sprintf("%s must be at most %s", fd.Label, formatBound(*rules.Max)))
		}
	}

	return ""
}

// checkConfirms enforces the two-field equality pattern (confirm password).
// The error is reported on the confirming field, naming the field it must
// match.
func checkConfirms(fd model.FormFieldDescriptor, value model.Value, draft model.Record, labels map[string]string) string {
	other, ok := draft[fd.Confirms]
	if ok && value.Equal(other) {
		return ""
	}
	otherLabel := labels[fd.Confirms]
	if otherLabel == "" {
		otherLabel = fd.Confirms
	}
	return fmt.Sprintf("%s must match %s", fd.Label, otherLabel)
}

func ruleMessage(rules *model.ValidationRules, fallback string) string {
	if rules.Message != "" {
		return rules.Message
	}
	return fallback
}

// numericDraftValue admits native numbers only. Numeric min/max apply to
// values whose runtime type is numeric, never to numeric-looking text.
func numericDraftValue(v model.Value) (float64, bool) {
	return v.AsNumber()
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
