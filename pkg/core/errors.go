package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedOperation is returned for operations a backend cannot answer.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrNotFound is returned when a single item lookup has no match.
	ErrNotFound = errors.New("not found")
)

// UnsupportedOperationError names the provider and the operation it lacks.
type UnsupportedOperationError struct {
	Provider  string
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s: %s is not supported", e.Provider, e.Operation)
}

func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}

// UpstreamError reports a failed remote call: a transport failure, a
// non-success status or a payload that could not be decoded.
type UpstreamError struct {
	Provider   string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s: upstream request to %s failed", e.Provider, e.URL)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" with status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		msg += ": " + truncate(e.Body, 256)
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// UnknownProviderError is returned by the registry for unregistered pairs.
type UnknownProviderError struct {
	Platform string
	Source   string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %s from %s", e.Platform, e.Source)
}

// NotFoundError wraps ErrNotFound with the provider and id that were looked up.
func NotFoundError(provider, id string) error {
	return fmt.Errorf("%s: item %q: %w", provider, id, ErrNotFound)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
