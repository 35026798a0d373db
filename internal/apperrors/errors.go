// Package apperrors defines the error taxonomy shared by services and HTTP
// handlers. Callers match sentinels with errors.Is and validation failures
// with errors.As.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrAuthentication means the request carries no valid identity.
	ErrAuthentication = errors.New("authentication credentials were not provided or are invalid")
	// ErrAuthorization means the identity lacks the role or ownership required.
	ErrAuthorization = errors.New("you do not have permission to perform this action")
	// ErrConflict means a uniqueness rule was violated.
	ErrConflict = errors.New("conflict")
	// ErrNotFound means a referenced recipe, rating or account does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable means an optional backend, such as image storage, is
	// not configured.
	ErrUnavailable = errors.New("service unavailable")
)

// ValidationError lists every violated rule, keyed by field name.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// FieldError is shorthand for a ValidationError with a single message.
func FieldError(field, msg string) *ValidationError {
	v := NewValidationError()
	v.Add(field, msg)
	return v
}

// Add records a violated rule for field.
func (v *ValidationError) Add(field, msg string) {
	v.Fields[field] = append(v.Fields[field], msg)
}

// Merge copies every violation recorded in other into v.
func (v *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}
	for field, msgs := range other.Fields {
		v.Fields[field] = append(v.Fields[field], msgs...)
	}
}

// HasErrors reports whether any rule was violated.
func (v *ValidationError) HasErrors() bool {
	return len(v.Fields) > 0
}

// OrNil returns v when it holds violations and nil otherwise, so it can be
// returned directly as an error.
func (v *ValidationError) OrNil() error {
	if v == nil || !v.HasErrors() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(v.Fields[k], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Conflict wraps ErrConflict with a client-facing message.
func Conflict(msg string) error {
	return fmt.Errorf("%w: %s", ErrConflict, msg)
}

// NotFound wraps ErrNotFound with the kind of missing resource.
func NotFound(kind string) error {
	return fmt.Errorf("%s %w", kind, ErrNotFound)
}

// HTTPStatus maps an error onto the status code surfaced to clients.
func HTTPStatus(err error) int {
	var verr *ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
