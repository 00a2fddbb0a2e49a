package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TimeoutError means the backend did not answer within the request bound.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string { return "backend timeout: " + e.Err.Error() }

func (e *TimeoutError) Unwrap() error { return e.Err }

// TransportError covers connection failures and unreadable responses.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "backend transport error: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-200 answer. Body is kept verbatim for the report.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Body)
}

// IsAuthError checks if an error is an authentication rejection.
func IsAuthError(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == 401 || se.Code == 403
	}
	return false
}

// IsTransient reports whether a caller-side retry could plausibly succeed:
// timeouts, transport faults, rate limiting and 5xx answers.
func IsTransient(err error) bool {
	var te *TimeoutError
	var tr *TransportError
	var se *StatusError
	switch {
	case errors.As(err, &te), errors.As(err, &tr):
		return true
	case errors.As(err, &se):
		return se.Code == 429 || se.Code >= 500
	default:
		return false
	}
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &TimeoutError{Err: err}
	}
	return &TransportError{Err: err}
}
