package schemas

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound indicates a session identifier that does not resolve to
// a live session: it is stale, already closed, or never existed. Surfaced as
// a 404-class condition so clients can distinguish "retry with a new session"
// from a server fault.
var ErrSessionNotFound = errors.New("session not found")

// ClientError marks a malformed or incomplete request (missing selector or
// value, unsupported action kind). Never retried and never a system fault;
// maps to a 400-class response.
type ClientError struct {
	Reason string
}

func (e *ClientError) Error() string { return e.Reason }

// NewClientError builds a ClientError with a formatted reason.
func NewClientError(format string, args ...any) *ClientError {
	return &ClientError{Reason: fmt.Sprintf(format, args...)}
}

// IsClientError reports whether err is (or wraps) a ClientError.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

// BrowserLaunchError indicates the underlying browser process could not be
// started. Fatal to the session creation attempt.
type BrowserLaunchError struct {
	Err error
}

func (e *BrowserLaunchError) Error() string {
	return fmt.Sprintf("failed to launch browser: %v", e.Err)
}

func (e *BrowserLaunchError) Unwrap() error { return e.Err }

// NavigationError indicates the target page could not be reached, or
// answered with a non-success HTTP status, during session creation.
type NavigationError struct {
	URL    string
	Status int
	Err    error
}

func (e *NavigationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("navigation to %s failed with status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// DomAccessError indicates the session's document could not be inspected at
// scan time (navigated away, cross-origin boundary without permission).
type DomAccessError struct {
	Err error
}

func (e *DomAccessError) Error() string {
	return fmt.Sprintf("document is not accessible: %v", e.Err)
}

func (e *DomAccessError) Unwrap() error { return e.Err }

// ExecutionError covers unexpected driver-level failures during an action
// (page crashed, context destroyed). 500-class; the caller should treat the
// session as possibly broken.
type ExecutionError struct {
	Op  string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
