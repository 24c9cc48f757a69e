package optimizer

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is wrapped by a TransportError when a success response
// cannot be decoded or does not have the expected shape.
var ErrMalformedResponse = errors.New("malformed optimization response")

// ApplicationError is an error reported by the optimization service itself
// through the "error" field of its response body.
type ApplicationError struct {
	Status  int
	Message string
}

func (e *ApplicationError) Error() string {
	return e.Message
}

// TransportError covers everything that kept a usable answer from arriving:
// network failures, non-2xx responses without an error body, and malformed
// success bodies.
type TransportError struct {
	// Status is the HTTP status code, or 0 when no response was received.
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("optimization service unreachable: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%v (HTTP status %d)", e.Err, e.Status)
	default:
		return fmt.Sprintf("HTTP error! status: %d", e.Status)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
