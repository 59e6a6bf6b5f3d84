package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrForbidden is returned when an administrative operation is attempted with
// a wrong or missing secret. It is checked before any other logic runs.
var ErrForbidden = errors.New("forbidden: admin secret mismatch")

// ErrPrimaryUnavailable is returned by operations that can only be answered
// from the primary store when no primary connection is configured or the
// database is unreachable.
var ErrPrimaryUnavailable = errors.New("primary store unavailable")

// ErrIDExhausted is returned when the company ID generator cannot find a free
// identifier within its attempt ceiling. The condition is transient: callers
// may retry the registration.
var ErrIDExhausted = errors.New("company id space exhausted, retry registration")

// ValidationError reports a missing or malformed required field. It is
// returned before any store access is attempted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NotFoundError reports that a referenced entity is absent from both stores.
type NotFoundError struct {
	Kind string // "company", "invoice", "receipt", "expense"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

// ConflictError carries the full set of unique fields whose candidate values
// collided with another company, not just the first one found.
type ConflictError struct {
	Fields []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting fields: %s", strings.Join(e.Fields, ", "))
}

// RenderError wraps a document-generation failure. It is distinct from
// validation and conflict errors so callers can surface it as a generic
// rendering failure.
type RenderError struct {
	Kind string // "invoice" or "receipt"
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render %s document: %v", e.Kind, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
