package llmstream

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
// These can be checked with errors.Is().
var (
	// ErrInvalidModel indicates the requested model is not supported by the provider.
	ErrInvalidModel = errors.New("llmstream: invalid or unsupported model")

	// ErrInvalidAPIKey indicates the API key is missing, malformed, or unauthorized.
	ErrInvalidAPIKey = errors.New("llmstream: invalid API key")

	// ErrRateLimited indicates the provider's rate limit has been exceeded.
	ErrRateLimited = errors.New("llmstream: rate limit exceeded")

	// ErrInvalidRequest indicates the request parameters were rejected.
	ErrInvalidRequest = errors.New("llmstream: invalid request")

	// ErrProviderUnavailable indicates the provider service is down or unreachable.
	ErrProviderUnavailable = errors.New("llmstream: provider unavailable")

	// ErrStreamClosed indicates Recv was called on a stream after Close.
	ErrStreamClosed = errors.New("llmstream: stream closed")

	// ErrAccumulatorFinalized indicates Apply was called after Finalize.
	// The pipeline guarantees no events follow a terminal one, so hitting
	// this means the caller replayed events into a consumed accumulator.
	ErrAccumulatorFinalized = errors.New("llmstream: accumulator already finalized")
)

// ProviderError represents an error reported by the provider API itself,
// either as a non-200 response or as an error payload embedded in an
// otherwise successful stream.
type ProviderError struct {
	Provider   string // The provider name
	StatusCode int    // HTTP status code, 0 for in-stream errors without one
	Code       string // Provider-specific error code/type, if any
	Message    string // Error message from provider
	Err        error  // Wrapped sentinel (ErrRateLimited, ErrProviderUnavailable, ...)
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider '%s' error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider '%s' error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ParseError represents a frame payload that did not match the provider's
// schema. It is terminal for the stream that produced it.
type ParseError struct {
	Provider string // The provider dialect
	Message  string // What failed to parse
	Raw      []byte // The offending payload
	Err      error  // Underlying decode error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider '%s': %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("provider '%s': %s", e.Provider, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SentinelForStatus maps an HTTP status code to the matching sentinel error,
// shared by all provider dialects.
func SentinelForStatus(code int) error {
	switch {
	case code == 401 || code == 403:
		return ErrInvalidAPIKey
	case code == 429:
		return ErrRateLimited
	case code >= 500:
		return ErrProviderUnavailable
	default:
		return ErrInvalidRequest
	}
}

// IsRetryable checks if an error is potentially retryable by a caller-side
// retry layer. Rate limits and provider outages qualify; parse failures and
// rejected requests do not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrProviderUnavailable) {
		return true
	}
	return false
}

// IsAuthError checks if an error is related to authentication.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidAPIKey) {
		return true
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.StatusCode == 401 || providerErr.StatusCode == 403
	}
	return false
}

// IsInvalidRequest checks if an error indicates a request the provider will
// never accept. These are not retryable and require request changes.
func IsInvalidRequest(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrInvalidModel)
}
