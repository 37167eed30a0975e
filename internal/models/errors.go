package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for data integrity faults. These are fatal for the task
// that hits them and are never retried.
var (
	ErrMissingIndexEntry      = errors.New("missing index entry")
	ErrMissingHierarchyRecord = errors.New("missing hierarchy record")
	ErrMalformedInput         = errors.New("malformed input")
	ErrRecordNotFound         = errors.New("record not found")
)

// Sentinel errors for the index lock.
var (
	ErrLockBusy = errors.New("lock busy")
	ErrLockLost = errors.New("lock lost")
)

// Sentinel errors for pipeline and request configuration.
var (
	ErrUnknownStep   = errors.New("unknown pipeline step")
	ErrUnknownMethod = errors.New("unknown path selection method")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ErrMissingField returns an ErrMalformedInput describing the absent field.
func ErrMissingField(field string) error {
	return fmt.Errorf("%w: %s is required", ErrMalformedInput, field)
}
