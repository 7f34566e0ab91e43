// ABOUTME: Classification of capability errors into transient and permanent
// ABOUTME: Backends mark retryable failures so callers can decide to retry
package util

import (
	"context"
	"errors"
	"net"
)

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// MarkTransient flags err as retryable. A nil error stays nil.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err is worth retrying: explicitly marked
// errors, deadline overruns and network timeouts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// IsRetryableStatus reports whether an HTTP status code signals a transient
// server-side condition (rate limiting or a 5xx).
func IsRetryableStatus(code int) bool {
	return code == 408 || code == 429 || code >= 500
}
