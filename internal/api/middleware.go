package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/gingerhendrix/my-nat/internal/logger"
	"github.com/gingerhendrix/my-nat/internal/observability/metrics"
)

// NewRequestLogger logs each request and records it in m. Metrics are
// labelled with the route template so session IDs do not blow up cardinality.
func NewRequestLogger(log logger.Logger, m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper:      skipProbes,
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.RecordHTTPRequest(v.Method, route, v.Status, v.Latency)

			if log == nil {
				return nil
			}
			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.String("ip", v.RemoteIP),
				logger.String("user_agent", v.UserAgent),
				logger.Int64("latency_ms", v.Latency.Milliseconds()),
			}
			if v.Error != nil {
				fields = append(fields, logger.Error(v.Error))
			}
			log.Info("request", fields...)
			return nil
		},
	})
}

// skipProbes keeps health checks and scrapes out of the request log.
func skipProbes(c echo.Context) bool {
	if c.Request().Method != http.MethodGet {
		return false
	}
	switch c.Path() {
	case healthPath, metricsPath:
		return true
	}
	return false
}

// NewCORS creates the CORS middleware for the browser front end.
func NewCORS(allowedOrigins []string) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
		},
	})
}
