package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"chat-gateway/internal/config"
	"chat-gateway/internal/gateway"
	"chat-gateway/internal/logging"
	"chat-gateway/internal/models"
	"chat-gateway/internal/provider"
	"chat-gateway/internal/telemetry"
	"chat-gateway/internal/translator"
)

const (
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	idleTimeout         = 120 * time.Second
	// writeSlack is added to the gateway timeout so a slow provider is cut
	// off by the gateway rather than by the listener.
	writeSlack = 15 * time.Second
)

type Server struct {
	cfg      config.Config
	gateway  *gateway.Gateway
	registry *provider.Registry
	metrics  *telemetry.Metrics
	logger   *slog.Logger
	app      *echo.Echo
	address  string
}

// Option configures optional server collaborators.
type Option func(*Server)

// WithMetrics mounts the Prometheus handler at cfg.Metrics.Path.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, gw *gateway.Gateway, registry *provider.Registry, opts ...Option) (*Server, error) {
	if gw == nil {
		return nil, errors.New("gateway must not be nil")
	}
	if registry == nil {
		return nil, errors.New("registry must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	srv := &Server{
		cfg:      cfg,
		gateway:  gw,
		registry: registry,
		logger:   slog.Default(),
		address:  fmt.Sprintf(":%d", cfg.Server.Port),
	}
	for _, opt := range opts {
		opt(srv)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = chatErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			srv.logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Int64("latency_ms", v.Latency.Milliseconds()),
				slog.Any("error", v.Error),
			)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))
	// Pre-flight requests are answered here with 204 and permissive headers.
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowMethods: []string{http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestID},
		MaxAge:       86400,
	}))

	srv.app = e
	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the routed application, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg)
	s.logger.Info("starting server", "addr", s.address, "default_provider", s.registry.DefaultID())

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: s.cfg.Gateway.RequestTimeout + writeSlack,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.POST("/api/chat", s.handleChat)
	s.app.POST("/chat", s.handleChat)

	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.app.GET(s.cfg.Metrics.Path, echo.WrapHandler(s.metrics.Handler()))
	}
}

type healthBody struct {
	Status          string                    `json:"status"`
	DefaultProvider string                    `json:"default_provider"`
	Providers       map[string]providerHealth `json:"providers"`
}

type providerHealth struct {
	Configured bool `json:"configured"`
}

func (s *Server) handleHealth(c echo.Context) error {
	body := healthBody{
		Status:          "ok",
		DefaultProvider: s.registry.DefaultID(),
		Providers:       make(map[string]providerHealth),
	}
	for _, id := range s.registry.IDs() {
		adapter, err := s.registry.Lookup(id)
		if err != nil {
			continue
		}
		body.Providers[id] = providerHealth{Configured: adapter.Configured()}
	}
	return c.JSON(http.StatusOK, body)
}

func (s *Server) handleChat(c echo.Context) error {
	var payload translator.ChatPayload
	if err := decodeRequestBody(c, s.cfg.Server.MaxBodyBytes, &payload); err != nil {
		return err
	}

	resp := s.gateway.Handle(c.Request().Context(), payload.ToRequest())
	return c.JSON(statusCode(resp.Status), translator.FromResponse(resp))
}

// statusCode keeps handled failures at 200 so simple clients only need to
// read the envelope; only invalid input is reported as 400.
func statusCode(status models.Status) int {
	if status == models.StatusBadRequest {
		return http.StatusBadRequest
	}
	return http.StatusOK
}

func decodeRequestBody[T any](c echo.Context, limit int64, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, limit)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return requestError{
				Status:  http.StatusRequestEntityTooLarge,
				Message: fmt.Sprintf("request body must not exceed %d bytes", tooLarge.Limit),
			}
		case errors.Is(err, io.EOF):
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
		}
	}
	return nil
}

type requestError struct {
	Status  int
	Message string
}

func (e requestError) Error() string {
	return e.Message
}

func chatErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"

	var reqErr requestError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &reqErr):
		status, message = reqErr.Status, reqErr.Message
	case errors.As(err, &httpErr):
		status = httpErr.Code
		if m, ok := httpErr.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(status)
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, translator.ErrorEnvelope(message, time.Now()))
}

func printStartupBanner(cfg config.Config) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("chat-gateway ready")
	fmt.Printf("Listening on http://%s:%d\n", host, cfg.Server.Port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  POST /api/chat")
	if cfg.Metrics.Enabled {
		fmt.Printf("  GET  %s\n", cfg.Metrics.Path)
	}
	fmt.Printf("Example:\n  curl http://%s:%d/api/chat -H 'Content-Type: application/json' -d '{\"message\":\"hello\",\"model\":\"%s\"}'\n\n", host, cfg.Server.Port, cfg.Gateway.DefaultProvider)
}
