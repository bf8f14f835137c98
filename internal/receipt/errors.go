package receipt

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no receipt exists for the given id.
	ErrNotFound = errors.New("receipt not found")

	// ErrInvalidTransition is returned when a review targets a receipt that
	// has already left PENDING.
	ErrInvalidTransition = errors.New("receipt is not pending review")
)

// ValidationError reports a malformed or missing required input. The field
// name is included so the caller can correct the request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvocationError wraps a failure of the external inference call. No receipt
// is persisted when one of these is returned.
type InvocationError struct {
	Err error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("inference invocation failed: %v", e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// PersistenceError wraps a store read or write failure. The caller cannot
// assume any partial state was committed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
