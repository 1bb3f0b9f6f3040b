package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/gingerhendrix/my-nat/internal/api"
	"github.com/gingerhendrix/my-nat/internal/app"
	"github.com/gingerhendrix/my-nat/internal/logger"
)

// Command creates the serve command.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API over HTTP",
		Long:  "Start the HTTP server exposing search sessions, the device location and metrics.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(runCtx, ctx)
		},
	}

	if err := setupFlags(cmd, ctx); err != nil {
		cmd.PrintErrf("error setting up flags: %v\n", err)
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, ctx *app.Context) error {
	cmd.Flags().StringVarP(&ctx.Settings.WebServer.Listen, "listen", "l", viper.GetString("webserver.listen"), "Listen address")
	cmd.Flags().DurationVar(&ctx.Settings.WebServer.SessionTTL, "sessionttl", viper.GetDuration("webserver.sessionttl"), "Idle expiry of search sessions")

	if err := viper.BindPFlag("webserver.listen", cmd.Flags().Lookup("listen")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("webserver.sessionttl", cmd.Flags().Lookup("sessionttl")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

// Run serves until ctx is done, then shuts the server down.
func Run(ctx context.Context, appCtx *app.Context) error {
	log := appCtx.Log("api")

	server, err := api.New(appCtx.Settings,
		api.WithLogger(log),
		api.WithMetrics(appCtx.Metrics),
		api.WithSessionFactory(appCtx.NewSession),
		api.WithLocator(appCtx.Locator),
		api.WithBuildInfo(appCtx.Build),
	)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down HTTP server")
		// the parent context is already done, shut down on a fresh one
		return server.Shutdown(context.WithoutCancel(gctx))
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", logger.Error(err))
		return err
	}
	return nil
}
