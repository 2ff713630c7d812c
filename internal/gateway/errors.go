package gateway

import (
	"errors"
	"fmt"

	"chat-gateway/internal/models"
)

// ErrEmptyMessage is the validation failure for a blank message.
var ErrEmptyMessage = errors.New("message is required")

// ValidationError reports bad input. No provider is contacted.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// ConfigurationError reports a provider with no credential set. Its message is
// actionable and safe to return to the caller.
type ConfigurationError struct {
	Provider      string
	AcceptedNames []string
	Guidance      string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider %q is not configured", e.Provider)
}

// UpstreamError reports a non-2xx, unreadable or malformed provider response.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("provider %q error: %s", e.Provider, e.Detail)
}

// TimeoutError is an UpstreamError raised when the request budget runs out.
type TimeoutError struct {
	Upstream *UpstreamError
}

func (e *TimeoutError) Error() string { return "timeout: " + e.Upstream.Error() }
func (e *TimeoutError) Unwrap() error { return e.Upstream }

// InternalError wraps anything unexpected, including recovered panics.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string { return "internal error: " + e.Err.Error() }
func (e *InternalError) Unwrap() error { return e.Err }

// Classify maps an error from the taxonomy onto the response status.
func Classify(err error) models.Status {
	var (
		validation *ValidationError
		configErr  *ConfigurationError
		upstream   *UpstreamError
	)
	switch {
	case err == nil:
		return models.StatusOK
	case errors.As(err, &validation):
		return models.StatusBadRequest
	case errors.As(err, &configErr):
		// Missing credentials are reported as guidance, not as a failure.
		return models.StatusOK
	case errors.As(err, &upstream):
		return models.StatusUpstreamUnavailable
	default:
		return models.StatusInternalError
	}
}

func upstreamError(r models.ProviderError) error {
	up := &UpstreamError{Provider: r.ProviderID, StatusCode: r.StatusCode, Detail: r.Detail}
	if r.Timeout {
		return &TimeoutError{Upstream: up}
	}
	return up
}

func outcomeOf(err error) string {
	var (
		timeout   *TimeoutError
		configErr *ConfigurationError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &timeout):
		return "timeout"
	case errors.As(err, &configErr):
		return "not_configured"
	}
	return string(Classify(err))
}
