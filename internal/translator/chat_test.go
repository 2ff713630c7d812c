package translator

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"chat-gateway/internal/models"
)

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, 5, 1, 14, 30, 5, 7_000_000, time.FixedZone("CEST", 2*60*60))
	if got, want := FormatTimestamp(ts), "2024-05-01T12:30:05.007Z"; got != want {
		t.Errorf("FormatTimestamp() = %q, want %q", got, want)
	}
}

func TestFromResponse_OmitsEmptyErrorFields(t *testing.T) {
	env := FromResponse(models.ChatResponse{
		Status:       models.StatusOK,
		ResponseText: "hi there",
		ProviderID:   "openai",
		Timestamp:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"response":"hi there","model":"openai","timestamp":"2024-01-02T03:04:05.000Z"}`
	if string(data) != want {
		t.Errorf("envelope = %s, want %s", data, want)
	}
}

func TestFromResponse_Failure(t *testing.T) {
	env := FromResponse(models.ChatResponse{
		Status:          models.StatusUpstreamUnavailable,
		ProviderID:      "gemini",
		Error:           "the assistant could not complete this request",
		FallbackMessage: "Please try again.",
	})

	if env.Response != "" || env.Model != "gemini" {
		t.Errorf("envelope = %+v", env)
	}
	if env.Error == "" || env.Fallback != "Please try again." {
		t.Errorf("envelope error fields = %q / %q", env.Error, env.Fallback)
	}
}

func TestChatPayload_ToRequest(t *testing.T) {
	var payload ChatPayload
	if err := json.NewDecoder(strings.NewReader(`{"message":"hello","model":"claude"}`)).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	req := payload.ToRequest()
	if req.Message != "hello" || req.Provider != "claude" {
		t.Errorf("ToRequest() = %+v", req)
	}
}

func TestErrorEnvelope(t *testing.T) {
	env := ErrorEnvelope("request body is required", time.Unix(0, 0))
	if env.Error != "request body is required" || env.Timestamp != "1970-01-01T00:00:00.000Z" {
		t.Errorf("ErrorEnvelope() = %+v", env)
	}
	if env.Model != "" || env.Response != "" {
		t.Errorf("ErrorEnvelope() carries response fields: %+v", env)
	}
}
