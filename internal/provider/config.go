package provider

import (
	"fmt"
	"log/slog"
	"strings"

	"chat-gateway/internal/config"
	"chat-gateway/internal/models"
)

// Config is the resolved, read-only record an adapter is built from. It is
// produced once at startup and shared by every request.
type Config struct {
	ID           string
	BaseURL      string
	Model        string
	Credential   config.Credential
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
	Headers      map[string]string
}

// NewConfig resolves the provider's credential through lookup and copies the
// generation defaults out of the file configuration.
func NewConfig(id string, pc config.ProviderConfig, lookup config.LookupFunc) Config {
	temperature := 0.0
	if pc.Temperature != nil {
		temperature = *pc.Temperature
	}

	headers := make(map[string]string, len(pc.Headers))
	for k, v := range pc.Headers {
		headers[k] = v
	}

	return Config{
		ID:           config.NormalizeID(id),
		BaseURL:      strings.TrimRight(pc.BaseURL, "/"),
		Model:        pc.Model,
		Credential:   config.ResolveCredential(lookup, pc.CredentialEnv),
		MaxTokens:    pc.MaxTokens,
		Temperature:  temperature,
		SystemPrompt: pc.SystemPrompt,
		Headers:      headers,
	}
}

// NotConfigured builds the guidance result returned when no credential is set.
// It names the accepted variables but never which one, if any, was probed last.
func (c Config) NotConfigured() models.NotConfigured {
	names := append([]string(nil), c.Credential.Accepted...)
	return models.NotConfigured{
		ProviderID:    c.ID,
		AcceptedNames: names,
		Guidance: fmt.Sprintf(
			"The %s provider is not configured yet. Set one of the environment variables %s in the deployment settings and redeploy to enable it.",
			c.ID, strings.Join(names, ", "),
		),
	}
}

// LogValue omits the credential value.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", c.ID),
		slog.String("model", c.Model),
		slog.String("base_url", c.BaseURL),
		slog.Any("credential", c.Credential),
	)
}

// Validate reports whether the record is usable by an adapter.
func (c Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("provider id must not be empty")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("provider %s: base url must not be empty", c.ID)
	}
	if c.Model == "" {
		return fmt.Errorf("provider %s: model must not be empty", c.ID)
	}
	return nil
}
