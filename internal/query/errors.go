package query

import (
	"errors"
	"fmt"
)

// ErrInvalidFilter indicates a query that cannot be turned into an
// executable FilterSpec. Check with errors.Is().
var ErrInvalidFilter = errors.New("invalid filter")

// InvalidFilterError carries the rejected query text and the reason the
// builder refused it. It is a request-level failure: the caller returns a
// structured error immediately, with no partial results.
type InvalidFilterError struct {
	Query  string
	Reason string
}

// Error implements the error interface.
func (e *InvalidFilterError) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("invalid filter for query %q: %s", e.Query, e.Reason)
	}
	return fmt.Sprintf("invalid filter: %s", e.Reason)
}

// Unwrap returns the sentinel for use with errors.Is().
func (e *InvalidFilterError) Unwrap() error {
	return ErrInvalidFilter
}

// UserFacingError returns a message safe to surface to end users. The query
// text is the user's own input, so echoing the reason is fine here.
func (e *InvalidFilterError) UserFacingError() string {
	return fmt.Sprintf("could not understand the query: %s", e.Reason)
}
