package factory

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"chat-gateway/internal/config"
	"chat-gateway/internal/provider"
	anthropicProvider "chat-gateway/internal/provider/anthropic"
	cohereProvider "chat-gateway/internal/provider/cohere"
	geminiProvider "chat-gateway/internal/provider/gemini"
	openaiProvider "chat-gateway/internal/provider/openai"
)

const (
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
	// clientTimeoutSlack keeps the client timeout behind the gateway's
	// per-request deadline so the context fires first.
	clientTimeoutSlack = 5 * time.Second
)

type constructor func(provider.Config, *http.Client) (provider.Adapter, error)

var constructors = map[string]constructor{
	config.ProviderOpenAI: func(cfg provider.Config, c *http.Client) (provider.Adapter, error) {
		return openaiProvider.New(cfg, c)
	},
	config.ProviderAnthropic: func(cfg provider.Config, c *http.Client) (provider.Adapter, error) {
		return anthropicProvider.New(cfg, c)
	},
	config.ProviderGemini: func(cfg provider.Config, c *http.Client) (provider.Adapter, error) {
		return geminiProvider.New(cfg, c)
	},
	config.ProviderCohere: func(cfg provider.Config, c *http.Client) (provider.Adapter, error) {
		return cohereProvider.New(cfg, c)
	},
}

// BuildRegistry resolves every provider's credential once through lookup and
// registers one adapter per configured provider, the primary first.
func BuildRegistry(cfg config.Config, lookup config.LookupFunc, client *http.Client, logger *slog.Logger) (*provider.Registry, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	registry := provider.NewRegistry()
	for _, id := range config.ProviderIDs() {
		pc, ok := cfg.Providers[id]
		if !ok {
			continue
		}

		build, ok := constructors[id]
		if !ok {
			return nil, fmt.Errorf("no adapter for provider %s", id)
		}

		resolved := provider.NewConfig(id, pc, lookup)
		adapter, err := build(resolved, client)
		if err != nil {
			return nil, fmt.Errorf("initialise %s provider: %w", id, err)
		}
		if err := registry.Register(adapter); err != nil {
			return nil, fmt.Errorf("register %s provider: %w", id, err)
		}

		if resolved.Credential.Present() {
			logger.Info("provider ready", "provider", resolved)
		} else {
			logger.Warn("provider not configured", "provider", resolved, "accepted_env", resolved.Credential.Accepted)
		}
	}

	if err := registry.SetDefault(cfg.Gateway.DefaultProvider); err != nil {
		return nil, err
	}
	for alias, target := range cfg.Aliases {
		if err := registry.Alias(alias, target); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// NewHTTPClient builds the shared outbound client. requestTimeout is the
// gateway's per-request budget.
func NewHTTPClient(requestTimeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   requestTimeout + clientTimeoutSlack,
		Transport: transport,
	}
}
