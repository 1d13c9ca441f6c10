package model

import "fmt"

// Standard error codes.
const (
	ErrBadRequest         = "BAD_REQUEST"
	ErrUnauthorized       = "UNAUTHORIZED"
	ErrForbidden          = "FORBIDDEN"
	ErrNotFound           = "NOT_FOUND"
	ErrValidationError    = "VALIDATION_ERROR"
	ErrInternalError      = "INTERNAL_ERROR"
	ErrBackendUnavailable = "BACKEND_UNAVAILABLE"
	ErrBackendTimeout     = "BACKEND_TIMEOUT"
)

// Schema error codes. Raised at schema construction and fatal to that
// schema instance; the definition must be fixed before use.
const (
	ErrDuplicateFieldKey    = "DUPLICATE_FIELD_KEY"
	ErrMissingOptions       = "MISSING_OPTIONS"
	ErrDuplicateOptionValue = "DUPLICATE_OPTION_VALUE"
	ErrUnknownFieldKey      = "UNKNOWN_FIELD_KEY"
)

// ErrorEnvelope is the standard structured error returned by the library
// and its HTTP surface. It implements the error interface.
type ErrorEnvelope struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
	TraceID string       `json:"trace_id,omitempty"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewBadRequestError returns a BAD_REQUEST error.
func NewBadRequestError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBadRequest, Message: msg}
}

// NewUnauthorizedError returns an UNAUTHORIZED error.
func NewUnauthorizedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrUnauthorized, Message: msg}
}

// NewForbiddenError returns a FORBIDDEN error.
func NewForbiddenError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrForbidden, Message: msg}
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewValidationError returns a VALIDATION_ERROR with field-level details.
func NewValidationError(details []FieldError) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrValidationError,
		Message: "One or more fields are invalid",
		Details: details,
	}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}

// NewBackendUnavailableError returns a BACKEND_UNAVAILABLE error.
func NewBackendUnavailableError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrBackendUnavailable,
		Message: "The upstream service is temporarily unavailable",
	}
}

// NewBackendTimeoutError returns a BACKEND_TIMEOUT error.
func NewBackendTimeoutError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrBackendTimeout,
		Message: "The upstream service did not respond in time",
	}
}

// NewDuplicateFieldKeyError names the field key registered more than once.
func NewDuplicateFieldKeyError(key string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrDuplicateFieldKey,
		Message: fmt.Sprintf("field key %q is registered more than once", key),
		Details: []FieldError{{Field: key, Code: ErrDuplicateFieldKey, Message: "duplicate field key"}},
	}
}

// NewMissingOptionsError names the select/multiselect field without options.
func NewMissingOptionsError(key string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrMissingOptions,
		Message: fmt.Sprintf("field %q requires a non-empty options list", key),
		Details: []FieldError{{Field: key, Code: ErrMissingOptions, Message: "options are required"}},
	}
}

// NewDuplicateOptionValueError names the field carrying a repeated option value.
func NewDuplicateOptionValueError(key, value string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrDuplicateOptionValue,
		Message: fmt.Sprintf("field %q declares option value %q more than once", key, value),
		Details: []FieldError{{Field: key, Code: ErrDuplicateOptionValue, Message: "option values must be unique"}},
	}
}

// NewUnknownFieldKeyError names the key absent from the schema.
func NewUnknownFieldKeyError(key string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrUnknownFieldKey,
		Message: fmt.Sprintf("field key %q is not registered in the schema", key),
	}
}
