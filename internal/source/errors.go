package source

import "fmt"

// AuthError means the source rejected our credentials. Fatal: the whole
// sync run aborts, retrying cannot help.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("message source auth rejected (status %d)", e.StatusCode)
}

// TransientError covers rate limits, 5xx responses, and network failures.
// The caller may retry with backoff.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient source error: %v", e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }
