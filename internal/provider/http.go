package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"chat-gateway/internal/models"
)

const (
	contentTypeJSON  = "application/json"
	userAgent        = "chat-gateway/0.1"
	maxErrorBody     = 64 * 1024
	maxResponseBody  = 4 << 20
	emptyTextMessage = "response contained no generated text"
)

// Call describes a single outbound provider request.
type Call struct {
	URL     string
	Header  http.Header
	Payload any
}

// Send performs one POST and returns the body of a 2xx reply. Every other
// outcome, including transport failures and deadlines, becomes a ProviderError.
func Send(ctx context.Context, client *http.Client, cfg Config, call Call) ([]byte, *models.ProviderError) {
	body, err := json.Marshal(call.Payload)
	if err != nil {
		return nil, &models.ProviderError{ProviderID: cfg.ID, Detail: fmt.Sprintf("marshal payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, call.URL, bytes.NewReader(body))
	if err != nil {
		return nil, &models.ProviderError{ProviderID: cfg.ID, Detail: fmt.Sprintf("construct request: %v", err)}
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)
	for k, values := range call.Header {
		for _, v := range values {
			req.Header.Set(k, v)
		}
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, transportFailure(ctx, cfg.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusFailure(cfg.ID, resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, transportFailure(ctx, cfg.ID, err)
	}
	return data, nil
}

// Decode unmarshals a success body, reporting malformed JSON as a parse failure.
func Decode(id string, body []byte, target any) *models.ProviderError {
	if err := json.Unmarshal(body, target); err != nil {
		failure := ParseFailure(id, fmt.Sprintf("decode provider response: %v", err))
		return &failure
	}
	return nil
}

// ParseFailure reports a 2xx response the adapter could not extract text from.
func ParseFailure(id, reason string) models.ProviderError {
	return models.ProviderError{
		ProviderID: id,
		StatusCode: http.StatusOK,
		Detail:     "parse response: " + reason,
	}
}

// TextResult turns extracted text into Success, treating blank text as a
// parse failure. The text itself is returned unmodified.
func TextResult(id, text string) models.CompletionResult {
	if strings.TrimSpace(text) == "" {
		return ParseFailure(id, emptyTextMessage)
	}
	return models.Success{Text: text}
}

func statusFailure(id string, resp *http.Response) *models.ProviderError {
	detail := resp.Status
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil {
		if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
			detail = trimmed
		}
	}
	return &models.ProviderError{
		ProviderID: id,
		StatusCode: resp.StatusCode,
		Detail:     detail,
	}
}

func transportFailure(ctx context.Context, id string, err error) *models.ProviderError {
	// url.Error repeats the request URL, which carries the key for
	// query-string authenticated providers.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	if isTimeout(ctx, err) {
		return &models.ProviderError{
			ProviderID: id,
			Detail:     fmt.Sprintf("request timed out: %v", err),
			Timeout:    true,
		}
	}
	return &models.ProviderError{
		ProviderID: id,
		Detail:     fmt.Sprintf("request failed: %v", err),
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
