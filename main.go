package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gingerhendrix/my-nat/cmd"
	"github.com/gingerhendrix/my-nat/internal/app"
	"github.com/gingerhendrix/my-nat/internal/buildinfo"
	"github.com/gingerhendrix/my-nat/internal/conf"
)

// buildDate and version are set at build time with -ldflags
var (
	buildDate string
	version   string
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return 1
	}

	appCtx := app.NewContext(settings, buildinfo.NewContext(version, buildDate))
	defer func() {
		if err := appCtx.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
	}()

	rootCmd := cmd.RootCommand(appCtx)
	rootCmd.Version = appCtx.Build.GetVersion()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
