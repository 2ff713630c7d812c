package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	minRequestTimeout = time.Second
	maxRequestTimeout = 120 * time.Second
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server    ServerConfig              `yaml:"server"`
	Gateway   GatewayConfig             `yaml:"gateway"`
	Logging   LoggingConfig             `yaml:"logging"`
	Metrics   MetricsConfig             `yaml:"metrics"`
	Tracing   TracingConfig             `yaml:"tracing"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Aliases   map[string]string         `yaml:"aliases"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port         int      `yaml:"port"`
	CORSOrigins  []string `yaml:"cors_origins"`
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
}

// GatewayConfig controls provider selection and the per-request budget.
type GatewayConfig struct {
	DefaultProvider string        `yaml:"default_provider"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	FallbackMessage string        `yaml:"fallback_message"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TracingConfig controls OTLP span export.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// ProviderConfig captures endpoint, credential names and generation defaults
// for one upstream provider.
type ProviderConfig struct {
	BaseURL       string   `yaml:"base_url"`
	Model         string   `yaml:"model"`
	CredentialEnv []string `yaml:"credential_env"`
	MaxTokens     int      `yaml:"max_tokens"`
	Temperature   *float64 `yaml:"temperature"`
	SystemPrompt  string   `yaml:"system_prompt"`
	Headers       Headers  `yaml:"headers"`
}

// Headers contains additional HTTP headers to send with a provider request.
type Headers map[string]string

// Load reads YAML configuration from disk, merges it over Defaults and
// validates the result. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, cfg.Validate()
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	cfg, err = Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}
	return cfg, nil
}

// Parse decodes YAML bytes, merges them over Defaults and validates.
func Parse(data []byte) (Config, error) {
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, err
	}

	cfg := merge(Defaults(), file)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func merge(base, file Config) Config {
	if file.Server.Port != 0 {
		base.Server.Port = file.Server.Port
	}
	if len(file.Server.CORSOrigins) > 0 {
		base.Server.CORSOrigins = file.Server.CORSOrigins
	}
	if file.Server.MaxBodyBytes != 0 {
		base.Server.MaxBodyBytes = file.Server.MaxBodyBytes
	}

	if file.Gateway.DefaultProvider != "" {
		base.Gateway.DefaultProvider = NormalizeID(file.Gateway.DefaultProvider)
	}
	if file.Gateway.RequestTimeout != 0 {
		base.Gateway.RequestTimeout = file.Gateway.RequestTimeout
	}
	if file.Gateway.FallbackMessage != "" {
		base.Gateway.FallbackMessage = file.Gateway.FallbackMessage
	}

	if file.Logging.Level != "" {
		base.Logging.Level = file.Logging.Level
	}
	if file.Logging.Format != "" {
		base.Logging.Format = file.Logging.Format
	}

	// A metrics block in the file is taken as a whole.
	if file.Metrics.Enabled || file.Metrics.Path != "" {
		base.Metrics = file.Metrics
		if base.Metrics.Path == "" {
			base.Metrics.Path = defaultMetricsPath
		}
	}

	if file.Tracing.Enabled {
		tracing := file.Tracing
		if tracing.ServiceName == "" {
			tracing.ServiceName = base.Tracing.ServiceName
		}
		if tracing.SampleRatio == 0 {
			tracing.SampleRatio = base.Tracing.SampleRatio
		}
		base.Tracing = tracing
	}

	for rawID, override := range file.Providers {
		id := NormalizeID(rawID)
		base.Providers[id] = mergeProvider(base.Providers[id], override)
	}

	for alias, target := range file.Aliases {
		base.Aliases[NormalizeID(alias)] = NormalizeID(target)
	}

	return base
}

func mergeProvider(base, override ProviderConfig) ProviderConfig {
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if override.Model != "" {
		base.Model = override.Model
	}
	if len(override.CredentialEnv) > 0 {
		base.CredentialEnv = override.CredentialEnv
	}
	if override.MaxTokens != 0 {
		base.MaxTokens = override.MaxTokens
	}
	if override.Temperature != nil {
		t := *override.Temperature
		base.Temperature = &t
	}
	if override.SystemPrompt != "" {
		base.SystemPrompt = override.SystemPrompt
	}
	if len(override.Headers) > 0 {
		headers := make(Headers, len(base.Headers)+len(override.Headers))
		for k, v := range base.Headers {
			headers[k] = v
		}
		for k, v := range override.Headers {
			headers[k] = v
		}
		base.Headers = headers
	}
	return base
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}

	if c.Gateway.RequestTimeout < minRequestTimeout || c.Gateway.RequestTimeout > maxRequestTimeout {
		return fmt.Errorf("gateway.request_timeout must be between %s and %s, got %s", minRequestTimeout, maxRequestTimeout, c.Gateway.RequestTimeout)
	}
	if strings.TrimSpace(c.Gateway.FallbackMessage) == "" {
		return fmt.Errorf("gateway.fallback_message must not be empty")
	}
	if _, ok := c.Providers[c.Gateway.DefaultProvider]; !ok {
		return fmt.Errorf("gateway.default_provider %q is not a configured provider", c.Gateway.DefaultProvider)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format %q must be one of %q or %q", c.Logging.Format, "json", "text")
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path %q must start with /", c.Metrics.Path)
	}
	if c.Tracing.Enabled {
		if strings.TrimSpace(c.Tracing.Endpoint) == "" {
			return fmt.Errorf("tracing.endpoint must be provided when tracing is enabled")
		}
		if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
			return fmt.Errorf("tracing.sample_ratio must be within [0, 1], got %v", c.Tracing.SampleRatio)
		}
	}

	for id, provider := range c.Providers {
		if _, known := builtinProviders[id]; !known {
			return fmt.Errorf("provider %s: unsupported provider id, expected one of %s", id, strings.Join(ProviderIDs(), ", "))
		}
		if err := validateProvider(id, provider); err != nil {
			return err
		}
	}

	for alias, target := range c.Aliases {
		if strings.TrimSpace(alias) == "" {
			return fmt.Errorf("alias name must not be empty")
		}
		if _, ok := c.Providers[alias]; ok {
			return fmt.Errorf("alias %q conflicts with provider id", alias)
		}
		if _, ok := c.Providers[target]; !ok {
			return fmt.Errorf("alias %q references unknown provider %q", alias, target)
		}
	}

	return nil
}

func validateProvider(name string, provider ProviderConfig) error {
	if strings.TrimSpace(provider.BaseURL) == "" {
		return fmt.Errorf("provider %s: base_url must be provided", name)
	}
	if strings.TrimSpace(provider.Model) == "" {
		return fmt.Errorf("provider %s: model must be provided", name)
	}
	if len(provider.CredentialEnv) == 0 {
		return fmt.Errorf("provider %s: at least one credential_env name must be configured", name)
	}
	for _, envName := range provider.CredentialEnv {
		if strings.TrimSpace(envName) == "" {
			return fmt.Errorf("provider %s: credential_env names must not be empty", name)
		}
	}
	if provider.MaxTokens <= 0 {
		return fmt.Errorf("provider %s: max_tokens must be positive, got %d", name, provider.MaxTokens)
	}
	if provider.Temperature == nil || *provider.Temperature < 0 || *provider.Temperature > 2 {
		return fmt.Errorf("provider %s: temperature must be within [0, 2]", name)
	}
	if strings.TrimSpace(provider.SystemPrompt) == "" {
		return fmt.Errorf("provider %s: system_prompt must not be empty", name)
	}

	for headerKey := range provider.Headers {
		if !isCanonicalHTTPHeader(headerKey) {
			return fmt.Errorf("provider %s: header %q is not a valid canonical HTTP header", name, headerKey)
		}
	}

	return nil
}

// NormalizeID canonicalises a provider id or alias for lookup.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}

	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}
