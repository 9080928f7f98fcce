package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when a backend is built without a key.
	ErrMissingAPIKey = errors.New("grading service API key is missing")
	// ErrEmptyCompletion is returned when a reply carries no text.
	ErrEmptyCompletion = errors.New("grading service returned no choices")
)

// HTTPError is a non-2xx reply from the completion endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("completion http %d: %s", e.StatusCode, e.Body)
}
