// Package errors defines the typed failures the acquisition pipeline
// distinguishes between when deciding how to degrade.
package errors

import (
	"errors"
	"fmt"
)

// TransportError represents an unreachable upstream or a non-2xx response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err as a transport failure of the given operation.
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// IsTransportError reports whether err is a TransportError (even when wrapped).
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
