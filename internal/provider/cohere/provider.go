package cohere

import (
	"context"
	"errors"
	"net/http"

	"chat-gateway/internal/models"
	"chat-gateway/internal/provider"
)

const chatPath = "/chat"

// Provider implements the Cohere v1 chat API, which takes a single message
// plus a preamble and answers with a top-level text field.
type Provider struct {
	cfg     provider.Config
	client  *http.Client
	chatURL string
}

// New constructs a Cohere adapter.
func New(cfg provider.Config, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Provider{
		cfg:     cfg,
		client:  client,
		chatURL: cfg.BaseURL + chatPath,
	}, nil
}

func (p *Provider) ID() string {
	return p.cfg.ID
}

func (p *Provider) Configured() bool {
	return p.cfg.Credential.Present()
}

func (p *Provider) Complete(ctx context.Context, message string) models.CompletionResult {
	if !p.cfg.Credential.Present() {
		return p.cfg.NotConfigured()
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.cfg.Credential.Value)

	body, failure := provider.Send(ctx, p.client, p.cfg, provider.Call{
		URL:    p.chatURL,
		Header: header,
		Payload: chatPayload{
			Model:       p.cfg.Model,
			Message:     message,
			Preamble:    p.cfg.SystemPrompt,
			MaxTokens:   p.cfg.MaxTokens,
			Temperature: p.cfg.Temperature,
		},
	})
	if failure != nil {
		return *failure
	}

	var resp chatResponse
	if failure := provider.Decode(p.cfg.ID, body, &resp); failure != nil {
		return *failure
	}
	if resp.Text == nil {
		return provider.ParseFailure(p.cfg.ID, "response missing text field")
	}
	return provider.TextResult(p.cfg.ID, *resp.Text)
}

type chatPayload struct {
	Model       string  `json:"model"`
	Message     string  `json:"message"`
	Preamble    string  `json:"preamble,omitempty"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type chatResponse struct {
	ResponseID   string  `json:"response_id"`
	Text         *string `json:"text"`
	FinishReason string  `json:"finish_reason"`
}
