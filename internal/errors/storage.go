package errors

import (
	"errors"
	"fmt"
)

// StorageError represents a persistence-layer failure. It is never
// recovered locally; the refresh attempt that hit it fails as a whole.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
	}
	return "storage: " + e.Op
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err as a storage failure of the given operation.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is a StorageError (even when wrapped).
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
