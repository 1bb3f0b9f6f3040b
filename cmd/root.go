package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gingerhendrix/my-nat/cmd/config"
	"github.com/gingerhendrix/my-nat/cmd/locate"
	"github.com/gingerhendrix/my-nat/cmd/search"
	"github.com/gingerhendrix/my-nat/cmd/serve"
	"github.com/gingerhendrix/my-nat/internal/app"
	"github.com/gingerhendrix/my-nat/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *app.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mynat",
		Short:         "Search iNaturalist observations",
		Long:          "Search iNaturalist observations by observer and by distance from a location.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, ctx.Settings); err != nil {
		rootCmd.PrintErrln(err)
	}

	configCmd := config.Command(ctx.Settings)

	rootCmd.AddCommand(
		search.Command(ctx),
		serve.Command(ctx),
		locate.Command(ctx),
		configCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := conf.ValidateSettings(ctx.Settings); err != nil {
			return err
		}
		// config only prints settings
		if cmd.Name() == configCmd.Name() {
			return nil
		}
		return ctx.Initialize()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.INaturalist.BaseURL, "baseurl", viper.GetString("inaturalist.baseurl"), "iNaturalist API root")
	rootCmd.PersistentFlags().DurationVar(&settings.INaturalist.Timeout, "timeout", viper.GetDuration("inaturalist.timeout"), "Request timeout")
	rootCmd.PersistentFlags().Float64Var(&settings.INaturalist.RateLimit, "ratelimit", viper.GetFloat64("inaturalist.ratelimit"), "Maximum requests per second, 0 disables pacing")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
