package scraper

import (
	"context"
	"errors"
	"fmt"
)

// NavigationTimeoutError indicates an expected element did not appear within
// the wait budget.
type NavigationTimeoutError struct {
	Selector string
	Err      error
}

func (e *NavigationTimeoutError) Error() string {
	return fmt.Errorf("navigation timeout waiting for %q: %w", e.Selector, e.Err).Error()
}

func (e *NavigationTimeoutError) Unwrap() error {
	return e.Err
}

// SessionError indicates the browser could not be launched, connected to, or
// crashed mid-session.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Errorf("browser session %s: %w", e.Op, e.Err).Error()
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// Warning is a non-fatal problem extracting one field of one record.
type Warning struct {
	Field   string
	Message string
}

func (w Warning) String() string {
	return w.Field + ": " + w.Message
}

// IsNavigationTimeout reports whether err is or wraps a NavigationTimeoutError.
func IsNavigationTimeout(err error) bool {
	var nav *NavigationTimeoutError
	return errors.As(err, &nav)
}

// ErrorKind returns a stable label for err, used for metrics and logs.
func ErrorKind(err error) string {
	if err == nil {
		return "none"
	}
	var nav *NavigationTimeoutError
	if errors.As(err, &nav) {
		return "navigation_timeout"
	}
	var sess *SessionError
	if errors.As(err, &sess) {
		return "session"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "deadline"
	}
	return "other"
}
