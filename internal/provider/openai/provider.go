package openai

import (
	"context"
	"errors"
	"net/http"

	"chat-gateway/internal/models"
	"chat-gateway/internal/provider"
)

const chatPath = "/chat/completions"

// Provider implements the Adapter contract for the OpenAI chat completions API.
type Provider struct {
	cfg     provider.Config
	client  *http.Client
	chatURL string
}

// New creates a new OpenAI adapter.
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
		URL:     p.chatURL,
		Header:  header,
		Payload: buildChatPayload(p.cfg, message),
	})
	if failure != nil {
		return *failure
	}

	var resp chatResponse
	if failure := provider.Decode(p.cfg.ID, body, &resp); failure != nil {
		return *failure
	}
	if len(resp.Choices) == 0 {
		return provider.ParseFailure(p.cfg.ID, "response contained no choices")
	}
	if resp.Choices[0].Message.Content == nil {
		return provider.ParseFailure(p.cfg.ID, "first choice has no message content")
	}
	return provider.TextResult(p.cfg.ID, *resp.Choices[0].Message.Content)
}

type chatPayload struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func buildChatPayload(cfg provider.Config, message string) chatPayload {
	return chatPayload{
		Model: cfg.Model,
		Messages: []openAIMessage{
			{Role: "system", Content: cfg.SystemPrompt},
			{Role: "user", Content: message},
		},
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
