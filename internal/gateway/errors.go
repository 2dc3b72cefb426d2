package gateway

import (
	"context"
	"errors"
	"net"
)

// ErrorKind classifies gateway failures. The orchestrator and HTTP layer only
// ever inspect these kinds, never raw provider errors.
type ErrorKind string

const (
	// KindInvalidInput is the caller's fault and is never retried.
	KindInvalidInput ErrorKind = "INVALID_INPUT"
	// KindRateLimit is surfaced after the gateway's backoff retries are
	// exhausted.
	KindRateLimit ErrorKind = "RATE_LIMIT"
	// KindProviderError is an opaque upstream failure, not retried.
	KindProviderError ErrorKind = "PROVIDER_ERROR"
	// KindConfigurationError means provider credentials are missing.
	KindConfigurationError ErrorKind = "CONFIGURATION_ERROR"
	// KindTimeout is a client-side deadline; the user must retry manually.
	KindTimeout ErrorKind = "TIMEOUT"
	// KindNetworkError is a connectivity failure, not retried automatically.
	KindNetworkError ErrorKind = "NETWORK_ERROR"
)

// Error is a classified gateway failure.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// NewError builds a classified gateway error.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf extracts the ErrorKind from err, classifying unrecognized errors as
// provider failures.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindProviderError
}

// classify converts an arbitrary provider or transport error into a gateway
// Error without retry semantics attached.
func classify(err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewError(KindTimeout, "the request timed out")
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return NewError(KindNetworkError, "could not reach the AI service: "+err.Error())
	}
	return NewError(KindProviderError, err.Error())
}
