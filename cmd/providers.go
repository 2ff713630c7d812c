package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"chat-gateway/internal/config"
	"chat-gateway/internal/provider"
)

func newProvidersCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Show which providers have a credential configured",
		Long: `Show, for each provider, whether a credential was found and which of the
accepted environment variables supplied it. Values are never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return writeProviderStatus(cmd.OutOrStdout(), cfg, config.EnvLookup)
		},
	}
}

func writeProviderStatus(w io.Writer, cfg config.Config, lookup config.LookupFunc) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tDEFAULT\tCONFIGURED\tSOURCE\tMODEL\tACCEPTED")

	for _, id := range config.ProviderIDs() {
		pc, ok := cfg.Providers[id]
		if !ok {
			continue
		}
		resolved := provider.NewConfig(id, pc, lookup)

		source := resolved.Credential.Source
		if source == "" {
			source = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			id,
			yesNo(id == cfg.Gateway.DefaultProvider),
			yesNo(resolved.Credential.Present()),
			source,
			resolved.Model,
			strings.Join(resolved.Credential.Accepted, ","),
		)
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
