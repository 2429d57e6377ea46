package provision

import (
	"errors"
	"fmt"
)

const (
	msgRolledBack = "operation failed but cleanup was successful"
	msgCritical   = "critical: operation failed and cleanup was unsuccessful"
)

// Sentinel errors for provisioning outcomes
var (
	// ErrValidation is returned for bad input, before any record is touched.
	ErrValidation = errors.New("invalid provisioning request")
	// ErrRolledBack marks a failure whose side effects were all undone.
	ErrRolledBack = errors.New("provisioning rolled back")
	// ErrCriticalInconsistency marks a failure where cleanup failed too and
	// records may be orphaned. An operator needs to look at it.
	ErrCriticalInconsistency = errors.New("provisioning left inconsistent state")
)

// Error is returned when a provisioning step fails after side effects began.
// Err is the step failure, CleanupErr joins every failed cleanup action.
type Error struct {
	Message    string
	Err        error
	CleanupErr error
}

func newError(err, cleanupErr error) *Error {
	if cleanupErr != nil {
		return &Error{Message: msgCritical, Err: err, CleanupErr: cleanupErr}
	}
	return &Error{Message: msgRolledBack, Err: err}
}

func (e *Error) Error() string {
	if e.CleanupErr != nil {
		return fmt.Sprintf("%s: %v (cleanup: %v)", e.Message, e.Err, e.CleanupErr)
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the step failure, the cleanup failure and the outcome sentinel to errors.Is.
func (e *Error) Unwrap() []error {
	if e.CleanupErr != nil {
		return []error{e.Err, e.CleanupErr, ErrCriticalInconsistency}
	}
	return []error{e.Err, ErrRolledBack}
}

// Critical reports whether cleanup failed and manual intervention is needed.
func (e *Error) Critical() bool {
	return e.CleanupErr != nil
}
