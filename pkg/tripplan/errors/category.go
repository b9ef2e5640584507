// Package errors provides the error taxonomy shared by the tripplan core.
//
// The package follows a layered approach:
//   - Types: ValidationError, NotFoundError, ConflictError, InvalidStateError
//   - Categorization: classify errors for the caller (recover, retry, fix code)
//   - Retry: re-run an attempt while it keeps failing with a retryable error
//
// Nothing in the core is fatal to the process. Every error is scoped to the
// single operation or scoring call that produced it.
package errors

import (
	"errors"
	"fmt"
)

// Category represents how a caller should react to an error.
type Category int

const (
	// CategoryRecoverable indicates bad input or a missing reference.
	// The caller reports it and may try again with corrected input.
	CategoryRecoverable Category = iota

	// CategoryRetryable indicates a uniqueness conflict. Retrying with
	// fresh input (e.g. a regenerated share code) will likely succeed.
	CategoryRetryable

	// CategoryProgrammer indicates a misuse of the API, such as undoing an
	// operation that never executed. It is always reported.
	CategoryProgrammer

	// CategoryInternal indicates an unexpected failure (journal I/O, etc).
	CategoryInternal
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryRecoverable:
		return "recoverable"
	case CategoryRetryable:
		return "retryable"
	case CategoryProgrammer:
		return "programmer"
	case CategoryInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error should be handled.
	Category Category

	// Attempts is the number of attempts that were made.
	Attempts int

	// Context describes what was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)",
			e.Context, e.Err, e.Category, e.Attempts)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)", e.Err, e.Category, e.Attempts)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// Categorize determines how an error should be handled.
func Categorize(err error) Category {
	if err == nil {
		return CategoryInternal
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	switch {
	case IsConflict(err):
		return CategoryRetryable
	case IsValidation(err), IsNotFound(err):
		return CategoryRecoverable
	case IsInvalidState(err):
		return CategoryProgrammer
	default:
		return CategoryInternal
	}
}

// IsRecoverable reports whether the caller can fix the input and retry.
func IsRecoverable(err error) bool {
	cat := Categorize(err)
	return cat == CategoryRecoverable || cat == CategoryRetryable
}
