// Package apperror defines the typed errors returned by lifecycle operations.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error class.
type Code string

const (
	CodeIllegalTransition Code = "ILLEGAL_TRANSITION"
	CodeStaleWrite        Code = "STALE_WRITE"
	CodeVisibilityDenied  Code = "VISIBILITY_DENIED"
	CodeNotFound          Code = "NOT_FOUND"
	CodeValidation        Code = "VALIDATION_FAILURE"
	CodeForbidden         Code = "FORBIDDEN"
	CodeInternal          Code = "INTERNAL"
)

// Error is a structured error carrying a code, a caller-facing message and optional details.
type Error struct {
	Code      Code                   `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	cause     error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same code, so callers can test against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrIllegalTransition = &Error{Code: CodeIllegalTransition}
	ErrStaleWrite        = &Error{Code: CodeStaleWrite}
	ErrVisibilityDenied  = &Error{Code: CodeVisibilityDenied}
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrValidation        = &Error{Code: CodeValidation}
	ErrForbidden         = &Error{Code: CodeForbidden}
	ErrInternal          = &Error{Code: CodeInternal}
)

// IllegalTransition reports an action that is not allowed for the current status and role.
func IllegalTransition(entity, from, role, action string) *Error {
	return &Error{
		Code:    CodeIllegalTransition,
		Message: fmt.Sprintf("%s cannot %s a %s in status %s", role, action, entity, from),
		Details: map[string]interface{}{
			"entity": entity,
			"from":   from,
			"role":   role,
			"action": action,
		},
	}
}

// StaleWrite reports a conditional update that lost a race. The caller should refetch and may retry once.
func StaleWrite(entity, id, expected string) *Error {
	return &Error{
		Code:      CodeStaleWrite,
		Message:   fmt.Sprintf("%s %s is no longer in status %s", entity, id, expected),
		Retryable: true,
		Details: map[string]interface{}{
			"entity":          entity,
			"id":              id,
			"expected_status": expected,
		},
	}
}

// VisibilityDenied hides an existing entity from a caller without a right to see it.
// The message is the same as NotFound on purpose.
func VisibilityDenied(entity, id string) *Error {
	return &Error{
		Code:    CodeVisibilityDenied,
		Message: fmt.Sprintf("%s not found", entity),
		Details: map[string]interface{}{"id": id},
	}
}

func NotFound(entity, id string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", entity),
		Details: map[string]interface{}{"id": id},
	}
}

// Validation reports a payload that does not satisfy the preconditions of the requested operation.
func Validation(message string, details map[string]interface{}) *Error {
	return &Error{Code: CodeValidation, Message: message, Details: details}
}

func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

// Internal wraps an unexpected failure.
func Internal(message string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: message, Retryable: true, cause: cause}
}

// As extracts an *Error from the chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HTTPStatus maps an error to the status code used by the HTTP layer.
func HTTPStatus(err error) int {
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case CodeIllegalTransition, CodeStaleWrite:
		return http.StatusConflict
	case CodeVisibilityDenied, CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
