package persistence

import (
	"errors"
	"fmt"
)

// Errors every implementation returns, possibly wrapped in a RecordError.
var (
	ErrWorkflowNotFound     = errors.New("workflow not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrEndpointNotFound     = errors.New("endpoint not found")
)

// RecordError adds the operation and record to a storage error.
type RecordError struct {
	Op     string // e.g. "GetByID", "Save"
	Record string // "workflow", "subscription", "endpoint", "delivery_log"
	ID     string
	Err    error
}

func (e *RecordError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s operation failed for %s: %v", e.Op, e.Record, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Record, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func (e *RecordError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewRecordError(op, record, id string, err error) *RecordError {
	return &RecordError{Op: op, Record: record, ID: id, Err: err}
}

func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsNotFound reports whether err means any record was missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrEndpointNotFound)
}
