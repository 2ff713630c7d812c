package translator

import (
	"time"

	"chat-gateway/internal/models"
)

// timestampLayout is ISO 8601 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// ChatPayload models the inbound chat request body.
type ChatPayload struct {
	Message string `json:"message"`
	// Model names the provider to use. Unknown or empty values fall back to
	// the default provider.
	Model string `json:"model,omitempty"`
}

// ToRequest converts the wire payload into the gateway request.
func (p ChatPayload) ToRequest() models.ChatRequest {
	return models.ChatRequest{
		Message:  p.Message,
		Provider: p.Model,
	}
}

// ChatEnvelope is the outbound response body.
type ChatEnvelope struct {
	Response  string `json:"response"`
	Model     string `json:"model"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
	Fallback  string `json:"fallback,omitempty"`
}

// FromResponse renders a gateway response for the wire.
func FromResponse(resp models.ChatResponse) ChatEnvelope {
	return ChatEnvelope{
		Response:  resp.ResponseText,
		Model:     resp.ProviderID,
		Timestamp: FormatTimestamp(resp.Timestamp),
		Error:     resp.Error,
		Fallback:  resp.FallbackMessage,
	}
}

// ErrorEnvelope renders a request that never reached the gateway.
func ErrorEnvelope(message string, now time.Time) ChatEnvelope {
	return ChatEnvelope{
		Timestamp: FormatTimestamp(now),
		Error:     message,
	}
}

// FormatTimestamp renders t in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
