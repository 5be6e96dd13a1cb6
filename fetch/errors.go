package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidJSON is returned when a 2xx response body is not valid JSON.
	ErrInvalidJSON = errors.New("response body is not valid JSON")
)

// TransportError is a network-level failure: the request never produced an
// HTTP status.
type TransportError struct {
	Method  string
	URL     string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s %s: request timed out: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: transport error: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPStatusError is a non-2xx response.
type HTTPStatusError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Status)
}

// RetryError is returned once every try of a request has failed.
type RetryError struct {
	Key      string
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Key, e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
