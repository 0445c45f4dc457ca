// Package errors provides the error taxonomy shared by the build-tree registry
// and the project lock coordinator.
//
// # Error Types
//
// Each semantic condition has a sentinel and a concrete type carrying context:
//   - NotFoundError (ErrNotFound): lookup of an unregistered project or build
//   - ConflictError (ErrConflict): duplicate registration of a known identifier
//   - CancelledError (ErrCancelled): a blocked lock wait was aborted
//   - ReentrantLockError (ErrReentrantLock): a nested lock request that would
//     deadlock its own caller
//   - ValidationError (ErrInvalidInput): malformed descriptor or path
//
// # Usage
//
//	err := errors.NewNotFoundError("project", ":app")
//
//	if errors.Is(err, errors.ErrNotFound) { ... }
//
//	var nf *errors.NotFoundError
//	if errors.As(err, &nf) { fmt.Println(nf.Kind, nf.ID) }
//
// Errors returned by caller-supplied actions are never wrapped in these types;
// they reach the caller unchanged.
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions so callers can import only this package.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Sentinel errors.
var (
	// ErrNotFound indicates an unknown project or build identifier.
	ErrNotFound = New("not found")
	// ErrConflict indicates the identifier is already registered.
	ErrConflict = New("already registered")
	// ErrCancelled indicates a lock wait ended because its context was done.
	ErrCancelled = New("lock wait cancelled")
	// ErrReentrantLock indicates a lock request that would block on a lock
	// already held by the same call chain.
	ErrReentrantLock = New("reentrant lock request")
	// ErrInvalidInput indicates input validation failed.
	ErrInvalidInput = New("invalid input")
)

// baseError provides common functionality for all error types.
type baseError struct {
	message string
	cause   error
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// NotFoundError reports a lookup by an identifier that was never registered.
type NotFoundError struct {
	baseError
	Kind string // "project" or "build"
	ID   string
}

// NewNotFoundError creates a NotFoundError for the given kind and identifier.
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message: fmt.Sprintf("%s %s not found", kind, id),
		},
		Kind: kind,
		ID:   id,
	}
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConflictError reports a duplicate registration.
type ConflictError struct {
	baseError
	Kind string
	ID   string
}

// NewConflictError creates a ConflictError for the given kind and identifier.
func NewConflictError(kind, id string) *ConflictError {
	return &ConflictError{
		baseError: baseError{
			message: fmt.Sprintf("%s %s is already registered", kind, id),
		},
		Kind: kind,
		ID:   id,
	}
}

// Is reports whether target is ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// CancelledError reports that a lock wait was abandoned. The lock was never
// granted. Cause carries the context error (context.Canceled or
// context.DeadlineExceeded) so errors.Is works against either.
type CancelledError struct {
	baseError
	Lock string
}

// NewCancelledError creates a CancelledError for a wait on the named lock.
func NewCancelledError(lock string, cause error) *CancelledError {
	return &CancelledError{
		baseError: baseError{
			message: fmt.Sprintf("waiting for lock on %s cancelled", lock),
			cause:   cause,
		},
		Lock: lock,
	}
}

// Is reports whether target is ErrCancelled or matches the cause.
func (e *CancelledError) Is(target error) bool {
	if target == ErrCancelled {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// ReentrantLockError reports a nested lock request that would deadlock.
type ReentrantLockError struct {
	baseError
	Requested string
	Held      string
}

// NewReentrantLockError creates a ReentrantLockError.
func NewReentrantLockError(requested, held string) *ReentrantLockError {
	return &ReentrantLockError{
		baseError: baseError{
			message: fmt.Sprintf("cannot lock %s while holding %s", requested, held),
		},
		Requested: requested,
		Held:      held,
	}
}

// Is reports whether target is ErrReentrantLock.
func (e *ReentrantLockError) Is(target error) bool {
	return target == ErrReentrantLock
}

// ValidationError reports malformed input.
type ValidationError struct {
	baseError
	Field string
	Value string
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, reason string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message: fmt.Sprintf("invalid %s %q: %s", field, value, reason),
		},
		Field: field,
		Value: value,
	}
}

// Is reports whether target is ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	return Is(err, ErrNotFound)
}

// IsConflict reports whether err is, or wraps, a ConflictError.
func IsConflict(err error) bool {
	return Is(err, ErrConflict)
}

// IsCancelled reports whether err is, or wraps, a CancelledError.
func IsCancelled(err error) bool {
	return Is(err, ErrCancelled)
}
