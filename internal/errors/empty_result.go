package errors

import "errors"

// EmptyResultError represents an upstream call that succeeded but yielded
// zero usable items.
type EmptyResultError struct {
	Query string
}

func (e *EmptyResultError) Error() string {
	return "upstream returned no usable items for query: " + e.Query
}

// NewEmptyResultError creates an EmptyResultError for the given query.
func NewEmptyResultError(query string) *EmptyResultError {
	return &EmptyResultError{Query: query}
}

// IsEmptyResultError reports whether err is an EmptyResultError (even when wrapped).
func IsEmptyResultError(err error) bool {
	var ee *EmptyResultError
	return errors.As(err, &ee)
}
