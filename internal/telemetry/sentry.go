// Package telemetry initialises optional Sentry error reporting.
//
// Reporting is off unless a DSN is configured. Events are stripped of user,
// host and runtime details before they leave the process, and their messages
// are scrubbed of search locations and observer logins.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/gingerhendrix/my-nat/internal/buildinfo"
	"github.com/gingerhendrix/my-nat/internal/conf"
	"github.com/gingerhendrix/my-nat/internal/errors"
	"github.com/gingerhendrix/my-nat/internal/logger"
	"github.com/gingerhendrix/my-nat/internal/privacy"
	"github.com/gingerhendrix/my-nat/internal/secrets"
)

// DefaultFlushTimeout bounds how long Flush waits for queued events
const DefaultFlushTimeout = 2 * time.Second

// allowedExtras are the only extra fields kept on outgoing events
var allowedExtras = map[string]struct{}{
	"error_type": {},
	"component":  {},
}

// InitSentry initialises the Sentry SDK and installs the error reporter.
// It reports whether reporting was enabled.
func InitSentry(settings *conf.TelemetrySettings, build *buildinfo.Context, log logger.Logger) (bool, error) {
	if settings == nil {
		errors.SetTelemetryReporter(nil)
		return false, nil
	}

	dsn, err := secrets.Resolve(settings.SentryDSNFile, settings.SentryDSN)
	if err != nil {
		errors.SetTelemetryReporter(nil)
		return false, fmt.Errorf("resolving sentry DSN: %w", err)
	}
	if dsn == "" {
		errors.SetTelemetryReporter(nil)
		return false, nil
	}

	err = sentry.Init(sentry.ClientOptions{
		Dsn:        dsn,
		SampleRate: 1.0,
		Debug:      false,

		AttachStacktrace: false,
		Environment:      settings.Environment,
		ServerName:       "",
		Release:          build.Release(),

		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return false, fmt.Errorf("sentry initialization failed: %w", err)
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))

	if log != nil {
		log.Info("error reporting enabled",
			logger.String("environment", settings.Environment),
			logger.String("release", build.Release()))
	}
	return true, nil
}

// Flush waits for queued events to be delivered
func Flush(timeout time.Duration) bool {
	if errors.GetTelemetryReporter() == nil {
		return true
	}
	return sentry.Flush(timeout)
}

// applyPrivacyFilters removes identifying data from an outgoing event
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	if event == nil {
		return nil
	}

	event.User = sentry.User{}
	event.ServerName = ""
	event.Message = privacy.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if _, ok := allowedExtras[k]; !ok {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	if event.Request != nil {
		event.Request.QueryString = ""
		event.Request.Cookies = ""
		event.Request.Headers = nil
	}

	return event
}
