package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-gateway/internal/config"
	"chat-gateway/internal/models"
	"chat-gateway/internal/provider"
)

func newTestProvider(t *testing.T, baseURL, key string) *Provider {
	t.Helper()
	cfg := provider.Config{
		ID:           "cohere",
		BaseURL:      baseURL,
		Model:        "command-r",
		Credential:   config.ResolveCredential(config.MapLookup(map[string]string{"CO_API_KEY": key}), []string{"COHERE_API_KEY", "CO_API_KEY"}),
		MaxTokens:    1000,
		Temperature:  0.7,
		SystemPrompt: "Be brief.",
	}
	p, err := New(cfg, &http.Client{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestComplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" {
			t.Errorf("path = %s, want /chat", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer co-test" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}

		var payload chatPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.Message != "hello" || payload.Preamble != "Be brief." || payload.Model != "command-r" {
			t.Errorf("payload = %+v, want message, preamble and model", payload)
		}

		_, _ = w.Write([]byte(`{"response_id":"r1","text":"hi there","finish_reason":"COMPLETE"}`))
	}))
	defer srv.Close()

	result := newTestProvider(t, srv.URL, "co-test").Complete(context.Background(), "hello")

	success, ok := result.(models.Success)
	if !ok {
		t.Fatalf("result = %#v, want Success", result)
	}
	if success.Text != "hi there" {
		t.Errorf("Text = %q, want %q", success.Text, "hi there")
	}
}

func TestComplete_MissingText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response_id":"r1"}`))
	}))
	defer srv.Close()

	result := newTestProvider(t, srv.URL, "co-test").Complete(context.Background(), "hello")
	pe, ok := result.(models.ProviderError)
	if !ok {
		t.Fatalf("result = %#v, want ProviderError", result)
	}
	if !strings.Contains(pe.Detail, "missing text") {
		t.Errorf("Detail = %q, want missing text", pe.Detail)
	}
}

func TestComplete_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"too many requests"}`))
	}))
	defer srv.Close()

	result := newTestProvider(t, srv.URL, "co-test").Complete(context.Background(), "hello")
	pe, ok := result.(models.ProviderError)
	if !ok {
		t.Fatalf("result = %#v, want ProviderError", result)
	}
	if pe.StatusCode != http.StatusTooManyRequests || pe.ProviderID != "cohere" {
		t.Errorf("ProviderError = %+v, want cohere 429", pe)
	}
}
