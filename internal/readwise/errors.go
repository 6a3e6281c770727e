package readwise

import (
	"errors"
	"fmt"
)

// ErrInvalidToken indicates the provided API token is invalid
var ErrInvalidToken = errors.New("invalid or expired Readwise token")

// FetchError represents a failed fetch from the Readwise API.
// Any fetch error aborts the whole sync run: a partial book catalog or
// highlight set must never be acted on.
type FetchError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("readwise %s fetch failed: HTTP %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("readwise %s fetch failed: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
