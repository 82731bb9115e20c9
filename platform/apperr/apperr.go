// Package apperr provides typed domain errors shared by all services.
// Services return these errors and the HTTP layer maps them to status codes,
// so handlers never need to inspect error strings.
package apperr

import (
	"fmt"
	"net/http"
)

// Kind categorizes a domain error for HTTP mapping.
type Kind int

const (
	// KindUnknown is the zero value for errors created outside this package.
	KindUnknown Kind = iota
	// KindNotFound indicates a referenced record does not exist.
	KindNotFound
	// KindValidation indicates malformed or out-of-range input.
	KindValidation
	// KindConflict indicates the current state does not permit the request,
	// e.g. an invalid pipeline transition.
	KindConflict
	// KindForbidden indicates the caller may not perform this action.
	KindForbidden
	// KindUnauthorized indicates authentication failed or is missing.
	KindUnauthorized
	// KindBadRequest indicates a generally invalid request.
	KindBadRequest
	// KindInternal indicates an unexpected internal failure.
	KindInternal
	// KindGone indicates a credential or resource that has expired.
	KindGone
)

// Error is a domain error carrying a Kind and optional context.
type Error struct {
	Kind    Kind
	Message string
	Op      string      // operation that failed (optional)
	Err     error       // wrapped cause (optional)
	Details interface{} // structured details surfaced in the response (optional)
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap supports errors.Is/errors.As on the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to an HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindGone:
		return http.StatusGone
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// New creates a domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a domain error wrapping a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp annotates the error with the failing operation.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails attaches structured details for the response body.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// Convenience constructors.

func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Validation(message string) *Error   { return New(KindValidation, message) }
func Conflict(message string) *Error     { return New(KindConflict, message) }
func Forbidden(message string) *Error    { return New(KindForbidden, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func BadRequest(message string) *Error   { return New(KindBadRequest, message) }
func Internal(message string) *Error     { return New(KindInternal, message) }
func Gone(message string) *Error         { return New(KindGone, message) }

// GetKind extracts the Kind from an error, or KindUnknown for foreign errors.
func GetKind(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
