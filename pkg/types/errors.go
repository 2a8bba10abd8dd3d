package types

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized    = errors.New("unauthorized: missing user sub")
	ErrForbidden       = errors.New("forbidden: not your request")
	ErrRequestNotFound = errors.New("help request not found")
	ErrOfferNotFound   = errors.New("offer not found for this request")
)

// ValidationError marks malformed or missing caller input. Returned before
// any write happens.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func Validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError marks a state-machine precondition failure, including a lost
// accept race. RequestStatus and AcceptedOfferID carry the last state read
// before the write was attempted; under concurrency they may be stale
// relative to the winner.
type ConflictError struct {
	Message         string
	RequestStatus   RequestStatus
	AcceptedOfferID string
}

func (e *ConflictError) Error() string { return e.Message }

// StorageError wraps any persistence-layer failure so callers can decide
// whether to surface it or retry the whole invocation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }
