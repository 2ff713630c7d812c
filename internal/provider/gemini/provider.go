package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"chat-gateway/internal/models"
	"chat-gateway/internal/provider"
)

// Provider implements the Gemini generateContent API. Gemini authenticates
// with a key query parameter rather than a header.
type Provider struct {
	cfg      provider.Config
	client   *http.Client
	endpoint string
}

// New constructs a Gemini adapter.
func New(cfg provider.Config, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// The model name is part of the path, not the body.
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", cfg.BaseURL, url.PathEscape(cfg.Model))
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("provider %s: invalid endpoint: %w", cfg.ID, err)
	}

	return &Provider{
		cfg:      cfg,
		client:   client,
		endpoint: endpoint,
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

	body, failure := provider.Send(ctx, p.client, p.cfg, provider.Call{
		URL:     p.requestURL(),
		Payload: buildGenerateRequest(p.cfg, message),
	})
	if failure != nil {
		return *failure
	}

	var resp generateResponse
	if failure := provider.Decode(p.cfg.ID, body, &resp); failure != nil {
		return *failure
	}

	text, err := resp.text()
	if err != nil {
		return provider.ParseFailure(p.cfg.ID, err.Error())
	}
	return provider.TextResult(p.cfg.ID, text)
}

func (p *Provider) requestURL() string {
	u, _ := url.Parse(p.endpoint)
	q := u.Query()
	q.Set("key", p.cfg.Credential.Value)
	u.RawQuery = q.Encode()
	return u.String()
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

func buildGenerateRequest(cfg provider.Config, message string) generateRequest {
	req := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: message}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxTokens,
		},
	}
	if cfg.SystemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: cfg.SystemPrompt}}}
	}
	return req
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// text joins the parts of the first candidate.
func (r generateResponse) text() (string, error) {
	if len(r.Candidates) == 0 {
		if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("no candidates, prompt blocked: %s", r.PromptFeedback.BlockReason)
		}
		return "", errors.New("response contained no candidates")
	}

	parts := r.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", fmt.Errorf("first candidate has no parts (finish reason %q)", r.Candidates[0].FinishReason)
	}

	var text strings.Builder
	for _, p := range parts {
		text.WriteString(p.Text)
	}
	return text.String(), nil
}
