package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/gingerhendrix/my-nat/internal/buildinfo"
	"github.com/gingerhendrix/my-nat/internal/conf"
	"github.com/gingerhendrix/my-nat/internal/errors"
	"github.com/gingerhendrix/my-nat/internal/geolocation"
	"github.com/gingerhendrix/my-nat/internal/logger"
	"github.com/gingerhendrix/my-nat/internal/observability"
	"github.com/gingerhendrix/my-nat/internal/observability/metrics"
)

const (
	healthPath  = "/healthz"
	metricsPath = "/metrics"
)

// Server is the HTTP server exposing search sessions.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	log      logger.Logger

	// Dependencies
	newSession SessionFactory
	locator    geolocation.Locator
	metrics    *observability.Metrics
	build      *buildinfo.Context

	sessions      *SessionStore
	apiController *Controller

	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// WithMetrics enables /metrics and request instrumentation.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithSessionFactory sets how new search sessions are created. Required.
func WithSessionFactory(f SessionFactory) ServerOption {
	return func(s *Server) {
		s.newSession = f
	}
}

// WithLocator sets the locator behind GET /api/v1/location.
func WithLocator(l geolocation.Locator) ServerOption {
	return func(s *Server) {
		s.locator = l
	}
}

// WithBuildInfo sets the version reported by the health check.
func WithBuildInfo(b *buildinfo.Context) ServerOption {
	return func(s *Server) {
		s.build = b
	}
}

// New creates a new HTTP server with the given settings and options.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	s := &Server{
		config:    config,
		settings:  settings,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.newSession == nil {
		return nil, errors.Newf("session factory is required").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.log == nil {
		s.log = GetLogger()
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Listen),
		logger.Duration("session_ttl", config.SessionTTL),
		logger.Bool("debug", config.Debug))

	return s, nil
}

func (s *Server) httpMetrics() *metrics.HTTPMetrics {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.HTTP
}

func (s *Server) searchMetrics() *metrics.SearchMetrics {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.Search
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(NewRequestLogger(s.log, s.httpMetrics()))
	s.echo.Use(NewCORS(s.config.AllowedOrigins))
	s.echo.Use(echomw.BodyLimit(s.config.BodyLimit))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.echo.GET(healthPath, s.healthCheck)
	if s.metrics != nil {
		s.echo.GET(metricsPath, echo.WrapHandler(s.metrics.Handler()))
	}

	radius := 0.0
	if s.settings != nil {
		radius = s.settings.Search.DefaultRadius
	}

	s.sessions = NewSessionStore(s.config.SessionTTL, s.searchMetrics())
	s.apiController = NewController(s.echo, s.sessions, s.newSession,
		s.locator, radius, s.log, s.httpMetrics())
}

// healthCheck handles the server health check endpoint.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)

	return c.JSON(http.StatusOK, map[string]any{
		"status":          "healthy",
		"version":         s.build.GetVersion(),
		"build_date":      s.build.GetBuildDate(),
		"uptime":          uptime.String(),
		"uptime_seconds":  uptime.Seconds(),
		"active_sessions": s.sessions.Len(),
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}

// Start serves HTTP requests and blocks until the server is shut down.
// A clean shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", logger.String("address", s.config.Listen))

	if err := s.echo.Start(s.config.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server and cancels in-flight searches.
// ctx bounds the wait; without a deadline the configured shutdown timeout applies.
func (s *Server) Shutdown(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}

	err := s.echo.Shutdown(ctx)
	s.sessions.Flush()
	if err != nil {
		s.log.Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.log.Info("server shutdown complete")
	return nil
}

// Sessions returns the session store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// Echo returns the underlying Echo instance.
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
