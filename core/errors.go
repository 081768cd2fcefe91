package core

import (
	"fmt"
	"time"
)

// BaseError is the base type for all whatsfuse errors. Provider tags
// the originating backend and may be empty for errors raised before a
// provider is selected.
type BaseError struct {
	Provider string
	Message  string
}

func (e *BaseError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s", e.Provider, e.Message)
	}
	return e.Message
}

// AuthenticationError signals rejected credentials.
type AuthenticationError struct{ BaseError }

// RateLimitError signals provider throttling. RetryAfter is zero when
// the provider gave no hint.
type RateLimitError struct {
	BaseError
	RetryAfter time.Duration
}

// InvalidRequestError signals a malformed or incomplete request,
// detected locally or by the provider.
type InvalidRequestError struct{ BaseError }

// NetworkError wraps a transport-level failure (dial, TLS, timeout).
type NetworkError struct {
	BaseError
	Err error
}

func (e *NetworkError) Unwrap() error { return e.Err }

// MessageNotSentError signals a provider-side send failure.
type MessageNotSentError struct{ BaseError }

// SessionNotFoundError signals an unknown session name (WAHA).
type SessionNotFoundError struct{ BaseError }

// InstanceNotAuthorizedError signals an unauthorized instance
// (Green API).
type InstanceNotAuthorizedError struct{ BaseError }

// ConfigurationError signals invalid or incomplete configuration,
// raised before any network call.
type ConfigurationError struct{ BaseError }

// UnsupportedProviderError signals an unrecognized provider name.
type UnsupportedProviderError struct{ BaseError }

// TransformationError signals a failure mapping a provider response
// into a unified record.
type TransformationError struct{ BaseError }

// ProviderError is a provider failure with no more specific kind.
type ProviderError struct{ BaseError }

// NotSupportedError signals that the selected provider does not
// implement an optional capability (e.g. session management). Callers
// can branch on it without treating it as a hard failure.
type NotSupportedError struct{ BaseError }

func newErr(provider, format string, args ...any) BaseError {
	return BaseError{Provider: provider, Message: fmt.Sprintf(format, args...)}
}

// ErrConfiguration builds a ConfigurationError.
func ErrConfiguration(format string, args ...any) error {
	return &ConfigurationError{newErr("", format, args...)}
}

// ErrUnsupportedProvider builds an UnsupportedProviderError.
func ErrUnsupportedProvider(name string) error {
	return &UnsupportedProviderError{newErr("", "provider %q is not supported (supported: waha, green_api)", name)}
}

// ErrInvalidRequest builds an InvalidRequestError tagged with provider.
func ErrInvalidRequest(provider, format string, args ...any) error {
	return &InvalidRequestError{newErr(provider, format, args...)}
}

// ErrNotSupported builds a NotSupportedError tagged with provider.
func ErrNotSupported(provider, what string) error {
	return &NotSupportedError{newErr(provider, "%s not supported by this provider", what)}
}

// ErrTransformation builds a TransformationError tagged with provider.
func ErrTransformation(provider, format string, args ...any) error {
	return &TransformationError{newErr(provider, format, args...)}
}
