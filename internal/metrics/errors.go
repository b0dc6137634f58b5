package metrics

import (
	"errors"
	"fmt"
)

// Sentinel errors for store and coordinator operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidTimestamp is returned when a timestamp cannot be parsed by
	// any supported variant, or when no timestamp was provided at all.
	ErrInvalidTimestamp = errors.New("metrics: invalid timestamp")

	// ErrPersistence is returned when the dataset repository fails to load
	// or save. The in-memory dataset is rolled back before this surfaces.
	ErrPersistence = errors.New("metrics: persistence failure")

	// ErrInvalidPayload is returned when an ingest payload has the wrong
	// shape (not an object, metrics not a list, neither a batch nor a
	// single metric).
	ErrInvalidPayload = errors.New("metrics: invalid payload")
)

// ItemError describes a validation or merge failure for a single metric
// within a batch, identified by its zero-based index.
type ItemError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ItemError) Error() string {
	return fmt.Sprintf("metric at index %d: %s", e.Index, e.Message)
}
