package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chat-gateway/internal/models"
	"chat-gateway/internal/provider"
)

const (
	DefaultTimeout         = 20 * time.Second
	DefaultFallbackMessage = "Sorry, the assistant is temporarily unavailable. Please try again in a moment."

	// upstreamErrorText is the caller-visible error for every upstream or
	// internal failure. It must not mention the provider's status or body.
	upstreamErrorText = "the assistant could not complete this request"

	tracerName = "chat-gateway/internal/gateway"
)

// Recorder receives per-request measurements.
type Recorder interface {
	ObserveRequest(provider, status string)
	ObserveProviderCall(provider, outcome string, elapsed time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) ObserveRequest(string, string)                      {}
func (noopRecorder) ObserveProviderCall(string, string, time.Duration) {}

// Gateway routes a normalized chat request to exactly one provider adapter
// and folds the outcome into a ChatResponse.
type Gateway struct {
	registry *provider.Registry
	timeout  time.Duration
	fallback string
	logger   *slog.Logger
	metrics  Recorder
	tracer   trace.Tracer
	now      func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTimeout bounds every adapter call.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithFallbackMessage sets the end-user text returned on upstream failure.
func WithFallbackMessage(msg string) Option {
	return func(g *Gateway) {
		if strings.TrimSpace(msg) != "" {
			g.fallback = msg
		}
	}
}

// WithLogger sets the private diagnostic channel.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(g *Gateway) {
		if r != nil {
			g.metrics = r
		}
	}
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(g *Gateway) {
		if t != nil {
			g.tracer = t
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// New constructs a gateway over a populated registry.
func New(registry *provider.Registry, opts ...Option) (*Gateway, error) {
	if registry == nil {
		return nil, errors.New("registry must not be nil")
	}
	if registry.DefaultID() == "" {
		return nil, errors.New("registry has no providers")
	}

	g := &Gateway{
		registry: registry,
		timeout:  DefaultTimeout,
		fallback: DefaultFallbackMessage,
		logger:   slog.Default(),
		metrics:  noopRecorder{},
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Handle never fails: every outcome, including adapter panics, is captured in
// the returned envelope. Exactly one provider is contacted, and only when the
// message is non-empty.
func (g *Gateway) Handle(ctx context.Context, req models.ChatRequest) (resp models.ChatResponse) {
	// Resolution is total: unknown or missing ids land on the default provider.
	adapter, providerID := g.registry.Resolve(req.Provider)

	ctx, span := g.tracer.Start(ctx, "gateway.handle", trace.WithAttributes(
		attribute.String("chat.provider.requested", req.Provider),
		attribute.String("chat.provider", providerID),
	))
	defer span.End()

	var err error
	defer func() {
		if rec := recover(); rec != nil {
			err = &InternalError{Err: fmt.Errorf("panic in provider %s: %v", providerID, rec)}
			resp = g.respond(providerID, "", err)
		}
		resp.Timestamp = g.now().UTC()
		g.finish(ctx, span, resp, err)
	}()

	var text string
	text, err = g.complete(ctx, adapter, providerID, req.Message)
	return g.respond(providerID, text, err)
}

func (g *Gateway) complete(ctx context.Context, adapter provider.Adapter, providerID, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", &ValidationError{Err: ErrEmptyMessage}
	}
	if adapter == nil {
		return "", &InternalError{Err: fmt.Errorf("no adapter for provider %q", providerID)}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	result := adapter.Complete(callCtx, message)
	err := g.interpret(callCtx, result)
	g.metrics.ObserveProviderCall(providerID, outcomeOf(err), time.Since(start))

	if err != nil {
		var configErr *ConfigurationError
		if errors.As(err, &configErr) {
			return configErr.Guidance, err
		}
		return "", err
	}
	return result.(models.Success).Text, nil
}

func (g *Gateway) interpret(ctx context.Context, result models.CompletionResult) error {
	switch r := result.(type) {
	case models.Success:
		return nil
	case models.NotConfigured:
		return &ConfigurationError{Provider: r.ProviderID, AcceptedNames: r.AcceptedNames, Guidance: r.Guidance}
	case models.ProviderError:
		if !r.Timeout && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			r.Timeout = true
		}
		return upstreamError(r)
	case nil:
		return &InternalError{Err: errors.New("adapter returned no result")}
	default:
		return &InternalError{Err: fmt.Errorf("adapter returned unexpected result %T", result)}
	}
}

func (g *Gateway) respond(providerID, text string, err error) models.ChatResponse {
	resp := models.ChatResponse{
		Status:     Classify(err),
		ProviderID: providerID,
	}

	var (
		validation *ValidationError
		configErr  *ConfigurationError
	)
	switch {
	case err == nil:
		resp.ResponseText = text
	case errors.As(err, &configErr):
		resp.ResponseText = configErr.Guidance
	case errors.As(err, &validation):
		resp.Error = validation.Error()
	default:
		resp.Error = upstreamErrorText
		resp.FallbackMessage = g.fallback
	}
	return resp
}

func (g *Gateway) finish(ctx context.Context, span trace.Span, resp models.ChatResponse, err error) {
	outcome := outcomeOf(err)
	g.metrics.ObserveRequest(resp.ProviderID, string(resp.Status))

	span.SetAttributes(
		attribute.String("chat.status", string(resp.Status)),
		attribute.String("chat.outcome", outcome),
	)
	if resp.Status != models.StatusOK {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}

	var configErr *ConfigurationError
	switch {
	case err == nil:
		g.logger.DebugContext(ctx, "chat completed", "provider", resp.ProviderID)
	case resp.Status == models.StatusBadRequest:
		g.logger.DebugContext(ctx, "chat request rejected", "provider", resp.ProviderID, "error", err)
	case errors.As(err, &configErr):
		g.logger.WarnContext(ctx, "provider not configured",
			"provider", configErr.Provider,
			"accepted_env", configErr.AcceptedNames,
		)
	case resp.Status == models.StatusUpstreamUnavailable:
		g.logger.WarnContext(ctx, "provider request failed",
			"provider", resp.ProviderID,
			"outcome", outcome,
			"error", err,
		)
	default:
		g.logger.ErrorContext(ctx, "chat request failed", "provider", resp.ProviderID, "error", err)
	}
}
