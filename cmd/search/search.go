package search

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gingerhendrix/my-nat/internal/app"
	"github.com/gingerhendrix/my-nat/internal/geo"
	"github.com/gingerhendrix/my-nat/internal/geolocation"
	"github.com/gingerhendrix/my-nat/internal/logger"
	"github.com/gingerhendrix/my-nat/internal/search"
)

// options holds the flags of the search command.
type options struct {
	user   string
	lat    float64
	lng    float64
	nearMe bool
	radius float64
	page   int
	output string
}

// Command creates the search command.
func Command(ctx *app.Context) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search observations by observer and location",
		Long: `Search iNaturalist observations made by a user, near a location, or both.
Results near a location are ordered by distance from it.`,
		Example: `  mynat search --user alice
  mynat search --lat 37.7749 --lng -122.4194 --radius 2000
  mynat search --near-me --page 2 --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.filter(cmd, ctx)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := run(runCtx, ctx.NewSession(), filter, opts.page)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, result)
		},
	}

	if err := setupFlags(cmd, &opts); err != nil {
		cmd.PrintErrf("error setting up flags: %v\n", err)
	}

	return cmd
}

// setupFlags configures flags specific to the search command.
func setupFlags(cmd *cobra.Command, opts *options) error {
	cmd.Flags().StringVarP(&opts.user, "user", "u", "", "iNaturalist login of the observer")
	cmd.Flags().Float64Var(&opts.lat, "lat", 0, "Latitude of the search center")
	cmd.Flags().Float64Var(&opts.lng, "lng", 0, "Longitude of the search center")
	cmd.Flags().BoolVar(&opts.nearMe, "near-me", false, "Search around the configured device location")
	cmd.Flags().Float64VarP(&opts.radius, "radius", "r", viper.GetFloat64("search.defaultradius"), "Search radius in meters")
	cmd.Flags().IntVarP(&opts.page, "page", "p", 1, "Result page to show")
	cmd.Flags().StringVarP(&opts.output, "output", "o", formatTable, "Output format: table, json or yaml")

	cmd.MarkFlagsRequiredTogether("lat", "lng")
	cmd.MarkFlagsMutuallyExclusive("lat", "near-me")
	cmd.MarkFlagsMutuallyExclusive("lng", "near-me")

	return nil
}

// filter builds the search filter from the parsed flags.
func (o *options) filter(cmd *cobra.Command, ctx *app.Context) (search.Filter, error) {
	if !validFormat(o.output) {
		return search.Filter{}, fmt.Errorf("unknown output format %q", o.output)
	}

	f := search.Filter{Username: o.user, RadiusMeters: o.radius}
	switch {
	case cmd.Flags().Changed("lat"):
		f.Location = &geo.Coordinate{Latitude: o.lat, Longitude: o.lng}
	case o.nearMe:
		coord, located := geolocation.ResolveOrDefault(cmd.Context(), ctx.Locator, ctx.Log("search"))
		if !located {
			cmd.PrintErrf("location unavailable, searching around %s\n", coord)
		}
		f.Location = &coord
	}
	return f, nil
}

// run searches and moves to page when it is past the first.
func run(ctx context.Context, session *search.Session, f search.Filter, page int) (*search.Result, error) {
	log := logger.Global().Module("search")

	result, err := session.Search(ctx, f)
	if err != nil {
		return nil, err
	}
	log.Debug("search completed",
		logger.Int("total", result.TotalMatchCount),
		logger.Int("pages", result.TotalPages))

	if page <= 1 {
		return result, nil
	}
	return session.GoToPage(ctx, page)
}
