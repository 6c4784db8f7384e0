package search

import (
	"errors"
	"fmt"
)

var ErrSearchFailed = errors.New("search failed")

// QueryError is returned when a document-store read fails while answering a search or a
// suggestion. No partial results accompany it.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s during %s: %s", ErrSearchFailed, e.Op, e.Err)
}

func (e *QueryError) Is(target error) bool {
	return target == ErrSearchFailed
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
