package client

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned by callers that guard blank input before any request.
var ErrEmptyInput = errors.New("empty input")

// NetworkError means the request never produced an HTTP response.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("failed to reach %s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError is a response with a non-2xx status.
type HTTPError struct {
	Endpoint   string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API responded with status: %d", e.StatusCode)
}

func IsHTTPStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == status
}
