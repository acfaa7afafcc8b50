// Package errors provides structured error handling for the pipeline with
// context propagation and HTTP status code mapping for the dashboard API.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error for metrics, run summaries, and
// response formatting.
type ErrorType string

const (
	// TypeValidation indicates invalid input or configuration. Fatal at
	// startup; the pipeline refuses to run half-configured.
	TypeValidation ErrorType = "validation"
	// TypeNotFound indicates a missing resource (HTTP 404).
	TypeNotFound ErrorType = "not_found"
	// TypeRejection indicates a raw record that failed normalization.
	// Recovered locally: dropped with a count, never a pipeline failure.
	TypeRejection ErrorType = "rejection"
	// TypeScoring indicates a model failed to score an item. Recovered
	// locally via lexicon fallback or deferral.
	TypeScoring ErrorType = "scoring"
	// TypeIntegrity indicates a bucket that cannot be recomputed (unknown
	// title, date outside retention). The bucket is skipped and the run
	// reports a non-zero failure count.
	TypeIntegrity ErrorType = "integrity"
	// TypeInternal indicates an unexpected server-side error (HTTP 500).
	TypeInternal ErrorType = "internal"
	// TypeExternal indicates an external service error (HTTP 502).
	TypeExternal ErrorType = "external"
)

// Error represents a structured error with type, message, and context.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the appropriate HTTP status code for this error type.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation, TypeRejection:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	case TypeIntegrity:
		return http.StatusUnprocessableEntity
	case TypeScoring, TypeExternal:
		return http.StatusBadGateway
	case TypeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ValidationError creates a new validation/configuration error.
func ValidationError(message string) *Error {
	return &Error{Type: TypeValidation, Message: message, Context: make(map[string]any)}
}

// NotFoundError creates a new not-found error.
func NotFoundError(message string, cause error) *Error {
	return &Error{Type: TypeNotFound, Message: message, Cause: cause, Context: make(map[string]any)}
}

// RejectionError creates a new ingestion rejection error.
func RejectionError(message string) *Error {
	return &Error{Type: TypeRejection, Message: message, Context: make(map[string]any)}
}

// ScoringError creates a new scoring failure error.
func ScoringError(message string, cause error) *Error {
	return &Error{Type: TypeScoring, Message: message, Cause: cause, Context: make(map[string]any)}
}

// IntegrityError creates a new aggregation integrity error.
func IntegrityError(message string, cause error) *Error {
	return &Error{Type: TypeIntegrity, Message: message, Cause: cause, Context: make(map[string]any)}
}

// InternalError creates a new internal error.
func InternalError(message string, cause error) *Error {
	return &Error{Type: TypeInternal, Message: message, Cause: cause, Context: make(map[string]any)}
}

// ExternalError creates a new external service error.
func ExternalError(message string, cause error) *Error {
	return &Error{Type: TypeExternal, Message: message, Cause: cause, Context: make(map[string]any)}
}

// WithField adds a context field to the error (chainable).
func (e *Error) WithField(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ErrorResponse represents the JSON structure sent to API clients.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Type    ErrorType      `json:"type"`
	Context map[string]any `json:"context,omitempty"`
}

// ToResponse converts an Error to an ErrorResponse for JSON serialization.
func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Message, Type: e.Type, Context: e.Context}
}

// AsStructuredError converts any error into a structured Error. If err is
// already an *Error, returns it unchanged. Otherwise wraps it as internal.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	return InternalError("internal error", err)
}

// IsType reports whether err is a structured error of the given type.
func IsType(err error, t ErrorType) bool {
	var structuredErr *Error
	return errors.As(err, &structuredErr) && structuredErr.Type == t
}
