package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chat-gateway/internal/models"
	"chat-gateway/internal/provider"
)

const (
	messagesPath = "/v1/messages"
	apiVersion   = "2023-06-01"
)

// Provider implements Anthropic Messages API interactions.
type Provider struct {
	cfg      provider.Config
	client   *http.Client
	messages string
}

// New constructs an Anthropic adapter.
func New(cfg provider.Config, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Provider{
		cfg:      cfg,
		client:   client,
		messages: cfg.BaseURL + messagesPath,
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
	header.Set("x-api-key", p.cfg.Credential.Value)
	header.Set("anthropic-version", apiVersion)

	body, failure := provider.Send(ctx, p.client, p.cfg, provider.Call{
		URL:     p.messages,
		Header:  header,
		Payload: buildMessagePayload(p.cfg, message),
	})
	if failure != nil {
		return *failure
	}

	var resp messageResponse
	if failure := provider.Decode(p.cfg.ID, body, &resp); failure != nil {
		return *failure
	}

	text, err := resp.text()
	if err != nil {
		return provider.ParseFailure(p.cfg.ID, err.Error())
	}
	return provider.TextResult(p.cfg.ID, text)
}

type messagePayload struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func buildMessagePayload(cfg provider.Config, text string) messagePayload {
	return messagePayload{
		Model:  cfg.Model,
		System: cfg.SystemPrompt,
		Messages: []message{
			{
				Role:    "user",
				Content: []contentBlock{{Type: "text", Text: text}},
			},
		},
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
}

type messageResponse struct {
	ID         string         `json:"id"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// text joins every text block; non-text blocks are skipped.
func (r messageResponse) text() (string, error) {
	if len(r.Content) == 0 {
		return "", errors.New("response missing content blocks")
	}

	var text strings.Builder
	found := false
	for _, block := range r.Content {
		if block.Type != "text" {
			continue
		}
		found = true
		text.WriteString(block.Text)
	}
	if !found {
		return "", fmt.Errorf("response has %d content blocks but none of type text", len(r.Content))
	}
	return text.String(), nil
}
