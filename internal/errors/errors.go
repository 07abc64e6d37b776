// Package errors - Typed errors for pricing, ingestion and quotes
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Type identifies the category of error. It is also the error code of API responses.
type Type string

const (
	TypeInput      Type = "INPUT_ERROR"
	TypeParsing    Type = "PARSING_ERROR"
	TypeValidation Type = "VALIDATION_ERROR"
	TypeConfig     Type = "CONFIG_ERROR"
	TypeInternal   Type = "INTERNAL_ERROR"
	TypeNotFound   Type = "NOT_FOUND"

	// TypeNotSupported is an operation or format this build does not handle
	TypeNotSupported Type = "NOT_SUPPORTED"

	// TypeUnknownService is a label or key with no service master entry
	TypeUnknownService Type = "UNKNOWN_SERVICE"

	// TypeNoTier is a quantity that no tier of the service covers
	TypeNoTier Type = "NO_MATCHING_TIER"

	// TypeNoTable means pricing was asked for before any tier table was committed
	TypeNoTable Type = "NO_TIER_TABLE"

	// TypeStorage is a quote store failure
	TypeStorage Type = "STORAGE_ERROR"
)

var statusByType = map[Type]int{
	TypeInput:          http.StatusBadRequest,
	TypeParsing:        http.StatusBadRequest,
	TypeValidation:     http.StatusBadRequest,
	TypeNotFound:       http.StatusNotFound,
	TypeUnknownService: http.StatusUnprocessableEntity,
	TypeNoTier:         http.StatusUnprocessableEntity,
	TypeNotSupported:   http.StatusNotImplemented,
	TypeNoTable:        http.StatusServiceUnavailable,
	TypeStorage:        http.StatusServiceUnavailable,
}

// Error is a categorized error. Context carries the fields a caller needs to act on it
// (row, column, service_key, quote_id...) and is returned as API error details.
type Error struct {
	Type    Type           `json:"type"`
	Message string         `json:"message"`
	Cause   error          `json:"-"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext sets a context field and returns e for chaining
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func New(t Type, message string) *Error {
	return &Error{Type: t, Message: message}
}

func Newf(t Type, format string, args ...any) *Error {
	return New(t, fmt.Sprintf(format, args...))
}

// Wrap categorizes cause. The cause stays reachable through errors.Is/As.
func Wrap(t Type, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause}
}

// As returns the outermost *Error in the chain
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsType reports whether the outermost *Error in the chain has type t
func IsType(err error, t Type) bool {
	e, ok := As(err)
	return ok && e.Type == t
}

// TypeOf returns the error category, TypeInternal for foreign errors
func TypeOf(err error) Type {
	if e, ok := As(err); ok {
		return e.Type
	}
	return TypeInternal
}

// HTTPStatus maps an error category to a response status code
func HTTPStatus(err error) int {
	if status, ok := statusByType[TypeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func Input(message string) *Error {
	return New(TypeInput, message)
}

func Parsing(message string, cause error) *Error {
	return Wrap(TypeParsing, message, cause)
}

func Validation(message string) *Error {
	return New(TypeValidation, message)
}

func Config(message string, cause error) *Error {
	return Wrap(TypeConfig, message, cause)
}

func Storage(message string, cause error) *Error {
	return Wrap(TypeStorage, message, cause)
}

func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}

// NotFound reports a missing resource, e.g. NotFound("quote", id)
func NotFound(resource, id string) *Error {
	return Newf(TypeNotFound, "%s not found: %s", resource, id).WithContext(resource, id)
}

func NotSupported(operation string) *Error {
	return Newf(TypeNotSupported, "operation not supported: %s", operation)
}

// UnknownService reports a label that resolves to no service
func UnknownService(label string) *Error {
	return Newf(TypeUnknownService, "no service is registered for label %q", label).
		WithContext("label", label)
}

// NoTable reports a lookup before the first tier table commit
func NoTable() *Error {
	return New(TypeNoTable, "no tier table loaded")
}
