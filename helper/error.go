package helper

import (
	"errors"
	"fmt"
)

// Error wraps an underlying error with the operation context it occurred in.
type Error struct {
	Context string
	Err     error
}

// NewError creates a new wrapped error with the given operation context.
func NewError(context string, err error) error {
	return &Error{Context: context, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("error in %s: %v", e.Context, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError reports caller-correctable input together with the
// offending value (invalid enum, out-of-range confidence, empty name).
type ValidationError struct {
	Field string
	Value interface{}
}

// NewValidationError creates a new ValidationError for the given field and value.
func NewValidationError(field string, value interface{}) error {
	return &ValidationError{Field: field, Value: value}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Value)
}

// NotFoundError reports a referenced resource that does not resolve,
// distinct from ValidationError so callers can tell bad input from a
// stale reference.
type NotFoundError struct {
	Resource string
	ID       string
}

// NewNotFoundError creates a new NotFoundError for the given resource and identifier.
func NewNotFoundError(resource string, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ConflictError reports an ownership or state conflict, e.g. mutating a
// resource owned by another user.
type ConflictError struct {
	Resource string
	Reason   string
}

// NewConflictError creates a new ConflictError for the given resource and reason.
func NewConflictError(resource string, reason string) error {
	return &ConflictError{Resource: resource, Reason: reason}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Resource, e.Reason)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nerr *NotFoundError
	return errors.As(err, &nerr)
}

// IsConflict reports whether err is or wraps a ConflictError.
func IsConflict(err error) bool {
	var cerr *ConflictError
	return errors.As(err, &cerr)
}
