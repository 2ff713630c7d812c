package config

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// Canonical provider ids.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderCohere    = "cohere"
)

const (
	defaultPort            = 8080
	defaultMaxBodyBytes    = 1 << 20 // 1 MiB
	defaultRequestTimeout  = 20 * time.Second
	defaultMaxTokens       = 1000
	defaultTemperature     = 0.7
	defaultMetricsPath     = "/metrics"
	defaultServiceName     = "chat-gateway"
	defaultFallbackMessage = "Sorry, the assistant is temporarily unavailable. Please try again in a moment."

	// DefaultSystemPrompt is the preamble sent ahead of every user message.
	DefaultSystemPrompt = "You are a helpful AI assistant for the product this chat widget is embedded in. Answer clearly and concisely."
)

// builtinProviders lists every supported provider. The order of CredentialEnv
// is the lookup priority.
var builtinProviders = map[string]ProviderConfig{
	ProviderOpenAI: {
		BaseURL:       "https://api.openai.com/v1",
		Model:         "gpt-4o-mini",
		CredentialEnv: []string{"OPENAI_API_KEY", "TEST_OPENAI_KEY", "OPENAI_KEY"},
	},
	ProviderAnthropic: {
		BaseURL:       "https://api.anthropic.com",
		Model:         "claude-3-5-haiku-latest",
		CredentialEnv: []string{"ANTHROPIC_API_KEY", "CLAUDE_API_KEY"},
	},
	ProviderGemini: {
		BaseURL:       "https://generativelanguage.googleapis.com/v1beta",
		Model:         "gemini-1.5-flash",
		CredentialEnv: []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "GOOGLE_AI_API_KEY"},
	},
	ProviderCohere: {
		BaseURL:       "https://api.cohere.ai/v1",
		Model:         "command-r",
		CredentialEnv: []string{"COHERE_API_KEY", "CO_API_KEY"},
	},
}

var builtinAliases = map[string]string{
	"gpt":    ProviderOpenAI,
	"claude": ProviderAnthropic,
	"google": ProviderGemini,
}

// Defaults returns a fully populated configuration. OpenAI is the default
// provider: it is listed first and is the one the gateway falls back to for
// unknown or missing provider ids.
func Defaults() Config {
	providers := make(map[string]ProviderConfig, len(builtinProviders))
	for id, p := range builtinProviders {
		temperature := defaultTemperature
		p.CredentialEnv = append([]string(nil), p.CredentialEnv...)
		p.MaxTokens = defaultMaxTokens
		p.Temperature = &temperature
		p.SystemPrompt = DefaultSystemPrompt
		providers[id] = p
	}

	aliases := make(map[string]string, len(builtinAliases))
	for alias, target := range builtinAliases {
		aliases[alias] = target
	}

	return Config{
		Server: ServerConfig{
			Port:         defaultPort,
			CORSOrigins:  []string{"*"},
			MaxBodyBytes: defaultMaxBodyBytes,
		},
		Gateway: GatewayConfig{
			DefaultProvider: ProviderOpenAI,
			RequestTimeout:  defaultRequestTimeout,
			FallbackMessage: defaultFallbackMessage,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    defaultMetricsPath,
		},
		Tracing: TracingConfig{
			ServiceName: defaultServiceName,
			SampleRatio: 1,
		},
		Providers: providers,
		Aliases:   aliases,
	}
}

// ProviderIDs returns the canonical provider ids with the primary first and
// the alternates in alphabetical order.
func ProviderIDs() []string {
	ids := make([]string, 0, len(builtinProviders))
	for id := range builtinProviders {
		if id != ProviderOpenAI {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return append([]string{ProviderOpenAI}, ids...)
}

// ParseLevel maps a textual level onto slog.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging.level %q must be one of debug, info, warn, error", level)
	}
}
