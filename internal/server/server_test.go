package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"chat-gateway/internal/config"
	"chat-gateway/internal/gateway"
	"chat-gateway/internal/provider/factory"
	"chat-gateway/internal/telemetry"
	"chat-gateway/internal/translator"
)

// newTestServer points the openai provider at upstream and wires the full
// stack. Only openai has a credential.
func newTestServer(t *testing.T, upstream string) http.Handler {
	t.Helper()

	cfg := config.Defaults()
	openai := cfg.Providers[config.ProviderOpenAI]
	openai.BaseURL = upstream
	cfg.Providers[config.ProviderOpenAI] = openai
	cfg.Server.MaxBodyBytes = 1024

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lookup := config.MapLookup(map[string]string{"OPENAI_API_KEY": "sk-test"})

	registry, err := factory.BuildRegistry(cfg, lookup, &http.Client{Timeout: 5 * time.Second}, logger)
	if err != nil {
		t.Fatalf("BuildRegistry() error = %v", err)
	}
	metrics := telemetry.NewMetrics(nil)
	gw, err := gateway.New(registry,
		gateway.WithTimeout(2*time.Second),
		gateway.WithLogger(logger),
		gateway.WithRecorder(metrics),
	)
	if err != nil {
		t.Fatalf("gateway.New() error = %v", err)
	}
	srv, err := New(cfg, gw, registry, WithLogger(logger), WithMetrics(metrics))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv.Handler()
}

func openAIStub(t *testing.T, text string) *httptest.Server {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": text}}},
		})
	}))
	t.Cleanup(upstream.Close)
	return upstream
}

func postChat(t *testing.T, h http.Handler, path, body string) (*httptest.ResponseRecorder, translator.ChatEnvelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env translator.ChatEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not a JSON envelope: %v\n%s", err, rec.Body.String())
	}
	return rec, env
}

func TestChat_Success(t *testing.T) {
	h := newTestServer(t, openAIStub(t, "hi there").URL)

	for _, path := range []string{"/api/chat", "/chat", "/api/chat/"} {
		rec, env := postChat(t, h, path, `{"message":"hello","model":"openai"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", path, rec.Code)
		}
		if env.Response != "hi there" || env.Model != "openai" {
			t.Errorf("%s envelope = %+v", path, env)
		}
		if env.Error != "" || env.Fallback != "" {
			t.Errorf("%s envelope carries error fields: %+v", path, env)
		}
		if _, err := time.Parse("2006-01-02T15:04:05.000Z", env.Timestamp); err != nil {
			t.Errorf("%s timestamp %q is not ISO 8601 UTC: %v", path, env.Timestamp, err)
		}
		if rec.Header().Get(echo.HeaderXRequestID) == "" {
			t.Errorf("%s response has no request id", path)
		}
	}
}

func TestChat_ModelRoundTrip(t *testing.T) {
	h := newTestServer(t, openAIStub(t, "hello back").URL)

	tests := []struct {
		model string
		want  string
	}{
		{model: "", want: "openai"},
		{model: "gpt", want: "openai"},
		{model: "mistral", want: "openai"},
		{model: "Claude", want: "anthropic"},
		{model: "gemini", want: "gemini"},
		{model: "cohere", want: "cohere"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			body, _ := json.Marshal(translator.ChatPayload{Message: "hello", Model: tt.model})
			rec, env := postChat(t, h, "/api/chat", string(body))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if env.Model != tt.want {
				t.Errorf("model = %q, want %q", env.Model, tt.want)
			}
		})
	}
}

func TestChat_NotConfiguredProviderReturnsGuidance(t *testing.T) {
	h := newTestServer(t, openAIStub(t, "unused").URL)

	rec, env := postChat(t, h, "/api/chat", `{"message":"hello","model":"anthropic"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	for _, name := range []string{"ANTHROPIC_API_KEY", "CLAUDE_API_KEY"} {
		if !strings.Contains(env.Response, name) {
			t.Errorf("guidance %q does not name %s", env.Response, name)
		}
	}
	if env.Error != "" {
		t.Errorf("error = %q, want empty", env.Error)
	}
}

func TestChat_UpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"internal detail org-999"}}`))
	}))
	defer upstream.Close()
	h := newTestServer(t, upstream.URL)

	rec, env := postChat(t, h, "/api/chat", `{"message":"hello"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if env.Error == "" || env.Fallback == "" {
		t.Errorf("envelope = %+v, want error and fallback", env)
	}
	if strings.Contains(rec.Body.String(), "org-999") {
		t.Errorf("response leaks upstream body: %s", rec.Body.String())
	}
}

func TestChat_BadRequests(t *testing.T) {
	h := newTestServer(t, openAIStub(t, "unused").URL)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "malformed json", body: `{"message":`, wantStatus: http.StatusBadRequest},
		{name: "missing message", body: `{"model":"openai"}`, wantStatus: http.StatusBadRequest},
		{name: "blank message", body: `{"message":"   "}`, wantStatus: http.StatusBadRequest},
		{name: "empty body", body: ``, wantStatus: http.StatusBadRequest},
		{name: "two objects", body: `{"message":"a"}{"message":"b"}`, wantStatus: http.StatusBadRequest},
		{name: "too large", body: `{"message":"` + strings.Repeat("x", 2048) + `"}`, wantStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := postChat(t, h, "/api/chat", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if env.Error == "" {
				t.Error("envelope has no error text")
			}
			if env.Timestamp == "" {
				t.Error("envelope has no timestamp")
			}
		})
	}
}

func TestChat_Preflight(t *testing.T) {
	h := newTestServer(t, openAIStub(t, "unused").URL)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://widget.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodPost) {
		t.Errorf("Access-Control-Allow-Methods = %q, want POST", got)
	}
}

func TestChat_MethodNotAllowed(t *testing.T) {
	h := newTestServer(t, openAIStub(t, "unused").URL)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	var env translator.ChatEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil || env.Error == "" {
		t.Errorf("405 body = %s, want error envelope", rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, openAIStub(t, "unused").URL)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body healthBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body.Status != "ok" || body.DefaultProvider != "openai" {
		t.Errorf("health = %+v", body)
	}
	if !body.Providers["openai"].Configured || body.Providers["gemini"].Configured {
		t.Errorf("providers = %+v, want only openai configured", body.Providers)
	}
	if len(body.Providers) != 4 {
		t.Errorf("providers = %d, want 4", len(body.Providers))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, openAIStub(t, "hi").URL)
	postChat(t, h, "/api/chat", `{"message":"hello"}`)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `chat_gateway_requests_total{provider="openai",status="ok"} 1`) {
		t.Errorf("metrics missing request counter:\n%s", rec.Body.String())
	}
}

func TestNew_RejectsNilCollaborators(t *testing.T) {
	if _, err := New(config.Defaults(), nil, nil); err == nil {
		t.Error("New() with nil gateway succeeded, want error")
	}
}
