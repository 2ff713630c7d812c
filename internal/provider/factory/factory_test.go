package factory

import (
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"testing"
	"time"

	"chat-gateway/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildRegistry(t *testing.T) {
	lookup := config.MapLookup(map[string]string{
		"OPENAI_API_KEY": "sk-test",
		"CO_API_KEY":     "co-test",
	})

	registry, err := BuildRegistry(config.Defaults(), lookup, &http.Client{}, discardLogger())
	if err != nil {
		t.Fatalf("BuildRegistry() error = %v", err)
	}

	if got, want := registry.IDs(), []string{"anthropic", "cohere", "gemini", "openai"}; !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
	if registry.DefaultID() != config.ProviderOpenAI {
		t.Errorf("DefaultID() = %q, want openai", registry.DefaultID())
	}

	configured := map[string]bool{"openai": true, "cohere": true, "anthropic": false, "gemini": false}
	for id, want := range configured {
		adapter, err := registry.Lookup(id)
		if err != nil {
			t.Fatalf("Lookup(%s) error = %v", id, err)
		}
		if adapter.Configured() != want {
			t.Errorf("%s Configured() = %v, want %v", id, adapter.Configured(), want)
		}
	}

	if _, id := registry.Resolve("claude"); id != config.ProviderAnthropic {
		t.Errorf("Resolve(claude) = %q, want anthropic", id)
	}
}

func TestBuildRegistry_CustomDefault(t *testing.T) {
	cfg := config.Defaults()
	cfg.Gateway.DefaultProvider = config.ProviderGemini

	registry, err := BuildRegistry(cfg, config.MapLookup(nil), &http.Client{}, discardLogger())
	if err != nil {
		t.Fatalf("BuildRegistry() error = %v", err)
	}
	if _, id := registry.Resolve("unknown"); id != config.ProviderGemini {
		t.Errorf("Resolve(unknown) = %q, want gemini", id)
	}
}

func TestBuildRegistry_RequiresClient(t *testing.T) {
	if _, err := BuildRegistry(config.Defaults(), nil, nil, discardLogger()); err == nil {
		t.Fatal("BuildRegistry() with nil client succeeded, want error")
	}
}

func TestNewHTTPClient(t *testing.T) {
	client := NewHTTPClient(20 * time.Second)
	if client.Timeout != 25*time.Second {
		t.Errorf("Timeout = %s, want request timeout plus slack", client.Timeout)
	}
	if _, ok := client.Transport.(*http.Transport); !ok {
		t.Errorf("Transport = %T, want *http.Transport", client.Transport)
	}
}
