package models

import "time"

// Status is the transport-agnostic classification of a handled chat request.
type Status string

const (
	StatusOK                  Status = "ok"
	StatusBadRequest          Status = "bad_request"
	StatusUpstreamUnavailable Status = "upstream_unavailable"
	StatusInternalError       Status = "internal_error"
)

// ChatRequest is the normalized inbound chat call.
type ChatRequest struct {
	Message string
	// Provider is the raw requested provider id. Empty or unknown values
	// resolve to the gateway's default provider.
	Provider string
}

// ChatResponse is the outbound envelope built once per request by the gateway.
type ChatResponse struct {
	Status       Status
	ResponseText string
	ProviderID   string
	Timestamp    time.Time
	// Error is a short, caller-safe description of a failure.
	Error string
	// FallbackMessage is safe to show an end user when Status is not ok.
	FallbackMessage string
}

// CompletionResult is the outcome of a single adapter call. It is one of
// Success, NotConfigured or ProviderError.
type CompletionResult interface {
	completionResult()
}

// Success carries the generated text extracted from a provider response.
type Success struct {
	Text string
}

// NotConfigured reports that no accepted credential name is set for a provider.
type NotConfigured struct {
	ProviderID    string
	AcceptedNames []string
	Guidance      string
}

// ProviderError reports a failed provider call. Detail may contain upstream
// response bodies and must only be written to logs.
type ProviderError struct {
	ProviderID string
	StatusCode int
	Detail     string
	Timeout    bool
}

func (Success) completionResult()       {}
func (NotConfigured) completionResult() {}
func (ProviderError) completionResult() {}
