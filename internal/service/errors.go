package service

import (
	"fmt"

	"github.com/nitesh/news_service/internal/store"
)

// ErrNotFound is returned when an article or source does not exist.
var ErrNotFound = store.ErrNotFound

// ValidationError reports a missing or malformed input. No I/O has happened
// when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// FetchError wraps a network or parse failure retrieving one feed.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch feed %s: %v", e.URL, e.Err) }

func (e *FetchError) Unwrap() error { return e.Err }

// WriteError wraps a failed batch commit. None of the batch was applied.
type WriteError struct {
	Count int
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write batch of %d articles: %v", e.Count, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func errorType(err error) string {
	switch err.(type) {
	case *ValidationError:
		return "validation"
	case *FetchError:
		return "fetch"
	case *WriteError:
		return "write"
	default:
		return "internal"
	}
}
