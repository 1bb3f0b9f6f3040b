// Package app wires settings into the long-lived services shared by the CLI
// commands and the HTTP API.
package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gingerhendrix/my-nat/internal/buildinfo"
	"github.com/gingerhendrix/my-nat/internal/conf"
	"github.com/gingerhendrix/my-nat/internal/errors"
	"github.com/gingerhendrix/my-nat/internal/geolocation"
	"github.com/gingerhendrix/my-nat/internal/httpclient"
	"github.com/gingerhendrix/my-nat/internal/inaturalist"
	"github.com/gingerhendrix/my-nat/internal/logger"
	"github.com/gingerhendrix/my-nat/internal/observability"
	"github.com/gingerhendrix/my-nat/internal/privacy"
	"github.com/gingerhendrix/my-nat/internal/search"
	"github.com/gingerhendrix/my-nat/internal/telemetry"
)

// Context holds the overall application state built from Settings.
type Context struct {
	Settings *conf.Settings
	Build    *buildinfo.Context

	Logger  *logger.CentralLogger
	Metrics *observability.Metrics
	HTTP    *httpclient.Client
	Client  *inaturalist.Client
	Locator geolocation.Locator

	initialized bool
}

// NewContext creates an uninitialised context for settings.
func NewContext(settings *conf.Settings, build *buildinfo.Context) *Context {
	return &Context{
		Settings: settings,
		Build:    build,
	}
}

// Initialize builds the logger, metrics, telemetry and API clients.
// Calling it again is a no-op.
func (c *Context) Initialize() error {
	if c.initialized {
		return nil
	}
	if c.Settings == nil {
		return errors.Newf("settings not loaded").
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}

	logging := c.Settings.Logging
	if c.Settings.Debug {
		logging.DefaultLevel = string(logger.LogLevelDebug)
		if logging.Console != nil {
			console := *logging.Console
			console.Level = string(logger.LogLevelDebug)
			logging.Console = &console
		}
	}
	cl, err := logger.NewCentralLogger(&logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(cl)
	c.Logger = cl

	if _, err := telemetry.InitSentry(&c.Settings.Telemetry, c.Build, cl.Module("telemetry")); err != nil {
		// reporting is optional
		cl.Module("app").Warn("error reporting disabled", logger.Error(err))
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	c.Metrics = m

	c.HTTP = httpclient.New(&httpclient.Config{
		DefaultTimeout: c.Settings.INaturalist.Timeout,
		UserAgent:      c.Settings.INaturalist.UserAgent,
	})
	c.HTTP.SetAfterResponseHook(logUpstream(cl.Module("httpclient")))

	client, err := inaturalist.NewClient(inaturalist.Config{
		BaseURL:           c.Settings.INaturalist.BaseURL,
		Timeout:           c.Settings.INaturalist.Timeout,
		UserAgent:         c.Settings.INaturalist.UserAgent,
		RequestsPerSecond: rateOrDisabled(c.Settings.INaturalist.RateLimit),
	},
		inaturalist.WithHTTPClient(c.HTTP),
		inaturalist.WithLogger(cl.Module("inaturalist")),
		inaturalist.WithMetrics(m.Search),
	)
	if err != nil {
		return err
	}
	c.Client = client

	locator, err := geolocation.FromSettings(&c.Settings.Location, c.HTTP)
	if err != nil {
		return err
	}
	c.Locator = locator

	c.initialized = true
	return nil
}

// logUpstream returns a hook logging each outbound request at debug level.
// Observer logins in the path are redacted.
func logUpstream(log logger.Logger) httpclient.ResponseHook {
	return func(req *http.Request, resp *http.Response, err error, elapsed time.Duration) {
		fields := []logger.Field{
			logger.String("method", req.Method),
			logger.String("host", req.URL.Host),
			logger.String("path", privacy.ScrubMessage(req.URL.EscapedPath())),
			logger.Duration("elapsed", elapsed),
		}
		if err != nil {
			log.Debug("upstream request failed", append(fields, logger.Error(err))...)
			return
		}
		log.Debug("upstream response", append(fields, logger.Int("status", resp.StatusCode))...)
	}
}

// rateOrDisabled maps a configured rate of 0 to the client's "no pacing" value.
func rateOrDisabled(rps float64) float64 {
	if rps <= 0 {
		return -1
	}
	return rps
}

// NewSession creates a search session bound to the shared client and the
// configured radius bounds.
func (c *Context) NewSession() *search.Session {
	return search.NewSession(c.Client,
		search.WithRadiusBounds(
			c.Settings.Search.DefaultRadius,
			c.Settings.Search.MinRadius,
			c.Settings.Search.MaxRadius),
		search.WithMetrics(c.Metrics.Search),
	)
}

// Log returns a module logger, falling back to the global logger before
// Initialize has run.
func (c *Context) Log(module string) logger.Logger {
	if c.Logger == nil {
		return logger.Global().Module(module)
	}
	return c.Logger.Module(module)
}

// Close flushes telemetry and releases clients and log files.
func (c *Context) Close() error {
	telemetry.Flush(telemetry.DefaultFlushTimeout)
	if c.Client != nil {
		c.Client.Close()
	}
	if c.Logger != nil {
		return c.Logger.Close()
	}
	return nil
}
