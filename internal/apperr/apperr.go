// Package apperr defines the application's closed failure taxonomy.
//
// Every failure that crosses a layer boundary is an *Error carrying a Kind,
// and each Kind is bound to exactly one HTTP status code. The HTTP layer is
// the only place a Kind is converted into a response; services and the
// persistence adapter construct these errors but never write responses.
//
// Kinds:
//   - KindBadRequest   (400) malformed but understood input, e.g. duplicate email
//   - KindValidation   (400) schema validation failed; carries per-field errors
//   - KindUnauthorized (401) missing/invalid credentials (declared, unused)
//   - KindForbidden    (403) authenticated but disallowed (declared, unused)
//   - KindNotFound     (404) referenced entity does not exist
//   - KindConflict     (409) declared, unused
//   - KindInternal     (500) unexpected failure, including all storage failures
//
// Errors wrap their cause, so errors.Is / errors.As keep working through the
// taxonomy (e.g. errors.Is(err, gorm.ErrRecordNotFound) on a wrapped Internal).
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind discriminates the members of the failure taxonomy.
type Kind int

const (
	// KindUnknown is the zero value; treated as KindInternal everywhere.
	KindUnknown Kind = iota
	KindBadRequest
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindInternal
)

// Status returns the HTTP status code bound to the kind.
func (k Kind) Status() int {
	switch k {
	case KindBadRequest, KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// String returns a stable lowercase name for the kind, suitable for logs.
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// FieldError reports one invalid input field by its wire name.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// Error is the single failure type exchanged between layers.
type Error struct {
	Kind    Kind
	Message string
	// Fields is populated only for KindValidation, in schema declaration order.
	Fields []FieldError
	cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// BadRequest constructs a 400 failure for understood-but-invalid input.
func BadRequest(msg string) *Error {
	return &Error{Kind: KindBadRequest, Message: msg}
}

// Validation constructs a 400 failure carrying per-field errors.
// The field slice must already be in schema declaration order.
func Validation(fields []FieldError) *Error {
	return &Error{Kind: KindValidation, Message: "request validation failed", Fields: fields}
}

// NotFound constructs a 404 failure.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Unauthorized constructs a 401 failure.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Forbidden constructs a 403 failure.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// Conflict constructs a 409 failure.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Internal constructs a 500 failure wrapping its cause. The message is the
// only detail ever shown to callers; the cause stays in logs.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, cause: cause}
}

// From extracts the taxonomy error from err. Any error outside the taxonomy
// is coerced to KindInternal with a generic message, so unexpected failures
// never leak detail to callers.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Kind: KindInternal, Message: "internal server error", cause: err}
}

// KindOf reports the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	return From(err).Kind
}

// IsKind reports whether err belongs to the taxonomy with the given kind.
func IsKind(err error, k Kind) bool {
	var ae *Error
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Kind == k
}
