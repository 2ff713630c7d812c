package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"chat-gateway/internal/config"
	"chat-gateway/internal/gateway"
	"chat-gateway/internal/logging"
	providerfactory "chat-gateway/internal/provider/factory"
	"chat-gateway/internal/server"
	"chat-gateway/internal/telemetry"
)

const tracingShutdownTimeout = 5 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Example: `  chat-gateway serve
  chat-gateway serve --config gateway.yaml --port 9090
  CHAT_GATEWAY_PORT=9090 chat-gateway serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), v)
		},
	}

	cmd.Flags().Int("port", 0, "override server port from configuration")
	_ = v.BindPFlag("port", cmd.Flags().Lookup("port"))
	return cmd
}

func serve(ctx context.Context, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	client := providerfactory.NewHTTPClient(cfg.Gateway.RequestTimeout)
	registry, err := providerfactory.BuildRegistry(cfg, config.EnvLookup, client, logger)
	if err != nil {
		return fmt.Errorf("build provider registry: %w", err)
	}

	gatewayOpts := []gateway.Option{
		gateway.WithTimeout(cfg.Gateway.RequestTimeout),
		gateway.WithFallbackMessage(cfg.Gateway.FallbackMessage),
		gateway.WithLogger(logger),
	}
	serverOpts := []server.Option{server.WithLogger(logger)}
	if cfg.Metrics.Enabled {
		metrics := telemetry.NewMetrics(nil)
		gatewayOpts = append(gatewayOpts, gateway.WithRecorder(metrics))
		serverOpts = append(serverOpts, server.WithMetrics(metrics))
	}

	gw, err := gateway.New(registry, gatewayOpts...)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, gw, registry, serverOpts...)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
