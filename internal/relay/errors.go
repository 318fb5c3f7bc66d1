package relay

import (
	"errors"
	"fmt"
)

// Kind classifies an upstream failure for the caller.
type Kind string

const (
	// KindUnavailable is a transient failure: network error, timeout,
	// 429, 502, 503 or 504. Only this kind is retried.
	KindUnavailable Kind = "unavailable"

	// KindInternal is an upstream failure that retrying will not fix.
	KindInternal Kind = "internal"

	// KindMalformed is a reply that does not match the response contract.
	KindMalformed Kind = "malformed"
)

// UpstreamError is the terminal error of a chat call.
type UpstreamError struct {
	Kind     Kind
	Attempts int
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("chat upstream %s after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Message is the text shown to a learner for this failure.
func (e *UpstreamError) Message() string {
	switch e.Kind {
	case KindUnavailable:
		return "The assistant is unavailable right now. Please try again in a moment."
	case KindMalformed:
		return "The assistant sent a reply that could not be read."
	default:
		return "The assistant hit an internal error."
	}
}

// Retryable reports whether the failure was transient.
func (e *UpstreamError) Retryable() bool { return e.Kind == KindUnavailable }

// ErrInvalidRequest wraps every request validation failure.
var ErrInvalidRequest = errors.New("invalid chat request")

func unavailable(err error) *UpstreamError { return &UpstreamError{Kind: KindUnavailable, Err: err} }
func internal(err error) *UpstreamError    { return &UpstreamError{Kind: KindInternal, Err: err} }
func malformed(err error) *UpstreamError   { return &UpstreamError{Kind: KindMalformed, Err: err} }
