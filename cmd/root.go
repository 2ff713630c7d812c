package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"chat-gateway/internal/config"
)

const envPrefix = "CHAT_GATEWAY"

// Execute runs the CLI dispatcher with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "chat-gateway",
		Short: "Multi-provider chat completion gateway",
		Long: `chat-gateway accepts a chat message over HTTP and forwards it to one of
several LLM providers (OpenAI, Anthropic, Gemini, Cohere), returning the
provider's reply in a single uniform envelope.

Provider credentials are read from the environment. A provider without a
credential stays usable: requests routed to it receive setup guidance.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to YAML configuration file (optional)")
	root.PersistentFlags().String("log-level", "", "override logging.level (debug, info, warn, error)")
	_ = v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		newServeCmd(v),
		newProvidersCmd(v),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the optional config file and applies flag and
// environment overrides.
func loadConfig(v *viper.Viper) (config.Config, error) {
	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return config.Config{}, err
	}

	if level := v.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if port := v.GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
