// Package apperror defines the error taxonomy used across the core and its
// facade. Every error surfaced to a caller is a *Error carrying an HTTP status,
// a stable code, and an optional wrapped cause.
package apperror

import (
	"fmt"
	"net/http"
)

// Error represents an application error with HTTP status and error code.
type Error struct {
	HTTPStatus int
	Code       string
	Message    string
	Internal   error
	Details    map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the internal error.
func (e *Error) Unwrap() error {
	return e.Internal
}

// WithInternal returns a copy of the error with an internal error attached.
func (e *Error) WithInternal(err error) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    e.Message,
		Internal:   err,
		Details:    e.Details,
	}
}

// WithMessage returns a copy of the error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    message,
		Internal:   e.Internal,
		Details:    e.Details,
	}
}

// WithDetails returns a copy of the error with details attached.
func (e *Error) WithDetails(details map[string]any) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    e.Message,
		Internal:   e.Internal,
		Details:    details,
	}
}

// New creates a new application error.
func New(status int, code, message string) *Error {
	return &Error{
		HTTPStatus: status,
		Code:       code,
		Message:    message,
	}
}

// Kind reports the taxonomy row this error belongs to (spec §7), used by
// callers deciding whether to retry.
func (e *Error) Kind() string {
	return e.Code
}

// Taxonomy rows from spec §7. Code is the taxonomy kind name verbatim so
// Kind() can be compared directly against these constants.
var (
	// ErrNotFound: entity/branch not visible at (b,t).
	ErrNotFound = New(http.StatusNotFound, "NotFound", "not found")

	// ErrBranchExists: create-branch precondition, name already taken.
	ErrBranchExists = New(http.StatusConflict, "BranchExists", "branch already exists")

	// ErrInvalidBranchName: create-branch precondition, name fails the grammar.
	ErrInvalidBranchName = New(http.StatusBadRequest, "InvalidBranchName", "invalid branch name")

	// ErrSchemaMismatch: write against a kind not present in the branch schema.
	ErrSchemaMismatch = New(http.StatusUnprocessableEntity, "SchemaMismatch", "kind not in branch schema")

	// ErrValidation: attribute value violates type/length/unique constraint.
	ErrValidation = New(http.StatusUnprocessableEntity, "Validation", "validation failed")

	// ErrMergeConflict: same field changed on both sides of a merge.
	ErrMergeConflict = New(http.StatusConflict, "MergeConflict", "merge conflict")

	// ErrSchemaConflict: incompatible schema across branches on merge.
	ErrSchemaConflict = New(http.StatusConflict, "SchemaConflict", "incompatible branch schema")

	// ErrConflict: optimistic-concurrency failure on write; caller may retry once.
	ErrConflict = New(http.StatusConflict, "Conflict", "concurrent write conflict")

	// ErrTransient: graph store reports a connection-level failure; retry with backoff.
	ErrTransient = New(http.StatusServiceUnavailable, "Transient", "transient store failure")

	// ErrFatal: assertion/invariant violated; abort the request and log.
	ErrFatal = New(http.StatusInternalServerError, "Fatal", "internal invariant violated")

	// ErrBadRequest: malformed request, not otherwise covered by a taxonomy row.
	ErrBadRequest = New(http.StatusBadRequest, "bad_request", "invalid request")
)

// IsRetryable reports whether the taxonomy kind has local recovery per §7:
// only Transient and the optimistic-concurrency Conflict are retried locally,
// everything else is surfaced unchanged.
func IsRetryable(err error) bool {
	appErr, ok := err.(*Error)
	if !ok {
		return false
	}
	switch appErr.Code {
	case ErrTransient.Code, ErrConflict.Code:
		return true
	default:
		return false
	}
}

// ToHTTPError converts an app error to an HTTP-friendly body, used by the
// facade's error handler.
func ToHTTPError(err error) (int, map[string]any) {
	if appErr, ok := err.(*Error); ok {
		errBody := map[string]any{
			"code":    appErr.Code,
			"message": appErr.Message,
		}
		if len(appErr.Details) > 0 {
			errBody["details"] = appErr.Details
		}
		return appErr.HTTPStatus, map[string]any{"error": errBody}
	}
	return http.StatusInternalServerError, map[string]any{
		"error": map[string]any{"code": "Fatal", "message": "an internal error occurred"},
	}
}

// NewNotFound creates a not found error for a resource type and id.
func NewNotFound(resourceType, id string) *Error {
	return ErrNotFound.WithMessage(fmt.Sprintf("%s %q not found", resourceType, id))
}

// NewMergeConflict builds a MergeConflict error carrying the conflicting
// entity/attribute and both candidate values, per spec §4.7/§7.
func NewMergeConflict(entity, attribute string, branchValue, baseValue any) *Error {
	return ErrMergeConflict.WithDetails(map[string]any{
		"entity":       entity,
		"attribute":    attribute,
		"branch_value": branchValue,
		"base_value":   baseValue,
	})
}
