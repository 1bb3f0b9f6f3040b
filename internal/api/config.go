// Package api provides the HTTP server and the JSON API that exposes search
// sessions to a browser front end.
package api

import (
	"fmt"
	"time"

	"github.com/gingerhendrix/my-nat/internal/conf"
	"github.com/gingerhendrix/my-nat/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second // a page fetch may take the full client timeout
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultSessionTTL      = 30 * time.Minute
	DefaultBodyLimit       = "64K"
)

// Config holds the HTTP server configuration.
type Config struct {
	Listen         string   // listen address, e.g. :8080
	AllowedOrigins []string // CORS allowed origins

	// Timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// SessionTTL is how long an untouched search session is kept
	SessionTTL time.Duration

	// BodyLimit is the maximum request body size (e.g. "64K")
	BodyLimit string

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:          conf.DefaultListenAddress,
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		SessionTTL:      DefaultSessionTTL,
		BodyLimit:       DefaultBodyLimit,
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()
	if settings == nil {
		return cfg
	}

	if settings.WebServer.Listen != "" {
		cfg.Listen = settings.WebServer.Listen
	}
	if settings.WebServer.SessionTTL > 0 {
		cfg.SessionTTL = settings.WebServer.SessionTTL
	}
	cfg.Debug = settings.Debug

	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	return nil
}
