package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gingerhendrix/my-nat/internal/conf"
)

// Command creates the config command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path := conf.ConfigFileUsed(); path != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "# loaded from %s\n", path)
			}
			shown := *settings
			if shown.Telemetry.SentryDSN != "" {
				shown.Telemetry.SentryDSN = "[redacted]"
			}
			return conf.WriteYAML(cmd.OutOrStdout(), &shown)
		},
	}

	return cmd
}
