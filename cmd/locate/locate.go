package locate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gingerhendrix/my-nat/internal/app"
	"github.com/gingerhendrix/my-nat/internal/geolocation"
	"github.com/gingerhendrix/my-nat/internal/search"
)

// Command creates the locate command.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Print the location used as the default search center",
		Long: `Resolve the device location with the configured provider. When the
location is unavailable the default map center is printed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, located := geolocation.ResolveOrDefault(cmd.Context(), ctx.Locator, ctx.Log("geolocation"))

			source := ctx.Settings.Location.Provider
			if !located {
				source = "default"
			}

			radius := ctx.Settings.Search.DefaultRadius
			if radius <= 0 {
				radius = search.DefaultRadius
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, radius %.0fm)\n", coord, source, radius)
			return err
		},
	}

	return cmd
}
