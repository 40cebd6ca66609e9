package bookapi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthenticated indicates an operation needed a token and none was held.
var ErrUnauthenticated = errors.New("not authenticated")

// ErrNotFound indicates the backend answered 404 for a read.
var ErrNotFound = errors.New("not found")

// RequestError is a non-success response from the backend. Message carries
// the backend's own explanation when it sent one.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed: HTTP %d", e.StatusCode)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *RequestError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// NetworkError is a transport-level failure: the request never got an
// HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: cannot reach server: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// WithDefaultMessage fills in fallback when err is a RequestError the
// backend sent no message for. Other errors are returned unchanged.
func WithDefaultMessage(err error, fallback string) error {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Message == "" {
		return &RequestError{StatusCode: reqErr.StatusCode, Message: fallback}
	}
	return err
}

// IsNetworkError reports whether err came from the transport.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
