package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel values matched by errors.Is against the typed errors below.
var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrConflict matches every *ConflictError.
	ErrConflict = errors.New("conflict")

	// ErrInvalidState matches every *InvalidStateError.
	ErrInvalidState = errors.New("invalid state")
)

// ValidationError reports a payload rejected by a validation pipeline.
// Messages preserve the order in which handlers produced them.
type ValidationError struct {
	Operation string
	Messages  []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if e.Operation != "" {
		return fmt.Sprintf("%s: validation failed: %s", e.Operation, msg)
	}
	return fmt.Sprintf("validation failed: %s", msg)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConflictError reports a uniqueness violation. Callers should retry
// with different input.
type ConflictError struct {
	Kind  string
	Field string
	Value string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s conflict: %s", e.Kind, e.Value)
	}
	return fmt.Sprintf("%s with %s %q already exists", e.Kind, e.Field, e.Value)
}

// Is reports whether target is ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// InvalidStateError reports a method called from a lifecycle state that
// forbids it, e.g. executing an operation twice.
type InvalidStateError struct {
	Op     string
	Status string
	Want   string
}

// Error implements the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s: status is %s, want %s", e.Op, e.Status, e.Want)
}

// Is reports whether target is ErrInvalidState.
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// IsValidation reports whether err is or wraps a validation failure.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether err is or wraps a missing-entity failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is or wraps a uniqueness violation.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsInvalidState reports whether err is or wraps a lifecycle violation.
func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }
