// Package logging builds the structured logger shared by the server and the
// gateway. All output passes through a redacting handler so provider error
// bodies and credentials never reach the log sink verbatim.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"chat-gateway/internal/config"
)

type contextKey string

const (
	requestIDKey  contextKey = "request_id"
	requestIDAttr            = "request_id"
)

// New returns a JSON or text logger at the configured level, writing to w
// (stdout when nil).
func New(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stdout
	}

	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(NewRedactingHandler(handler)), nil
}

// WithRequestID stores the request id for every log line written with ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
