// Package geolocation resolves the device location used as the default search
// origin. Failures are expected: callers fall back to DefaultCenter.
package geolocation

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"

	"github.com/gingerhendrix/my-nat/internal/conf"
	"github.com/gingerhendrix/my-nat/internal/errors"
	"github.com/gingerhendrix/my-nat/internal/geo"
	"github.com/gingerhendrix/my-nat/internal/httpclient"
	"github.com/gingerhendrix/my-nat/internal/logger"
)

const componentName = "geolocation"

// DefaultCenter is the map center used when no location is available (San Francisco).
var DefaultCenter = geo.Coordinate{Latitude: conf.DefaultLatitude, Longitude: conf.DefaultLongitude}

var (
	// ErrPermissionDenied means the user has not allowed location lookups.
	ErrPermissionDenied = errors.NewStd("location permission denied")

	// ErrUnavailable means the location could not be determined.
	ErrUnavailable = errors.NewStd("location unavailable")
)

// Locator returns the current device location.
type Locator interface {
	Locate(ctx context.Context) (geo.Coordinate, error)
}

// StaticLocator always returns a configured coordinate.
type StaticLocator struct {
	Coordinate geo.Coordinate
}

// Locate returns the configured coordinate, or ErrUnavailable when it is out of range.
func (l StaticLocator) Locate(context.Context) (geo.Coordinate, error) {
	if err := l.Coordinate.Validate(); err != nil {
		return geo.Coordinate{}, unavailable(err, "static")
	}
	return l.Coordinate, nil
}

// DeniedLocator models a user who has switched location off.
type DeniedLocator struct{}

// Locate always fails with ErrPermissionDenied.
func (DeniedLocator) Locate(context.Context) (geo.Coordinate, error) {
	return geo.Coordinate{}, errors.New(ErrPermissionDenied).
		Component(componentName).
		Category(errors.CategoryGeolocation).
		Context("provider", conf.LocationProviderNone).
		Build()
}

// IPLocator approximates the location from the public IP address using a
// JSON lookup service such as ipapi.co or ip-api.com.
type IPLocator struct {
	endpoint string
	http     *httpclient.Client
}

// NewIPLocator creates a locator querying endpoint through hc.
func NewIPLocator(endpoint string, hc *httpclient.Client) *IPLocator {
	if hc == nil {
		hc = httpclient.New(nil)
	}
	return &IPLocator{endpoint: endpoint, http: hc}
}

// Locate queries the lookup service. Any failure is reported as ErrUnavailable.
func (l *IPLocator) Locate(ctx context.Context) (geo.Coordinate, error) {
	resp, err := l.http.Get(ctx, l.endpoint)
	if err != nil {
		return geo.Coordinate{}, unavailable(err, conf.LocationProviderIP)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return geo.Coordinate{}, unavailable(fmt.Errorf("lookup returned status %d", resp.StatusCode), conf.LocationProviderIP)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return geo.Coordinate{}, unavailable(err, conf.LocationProviderIP)
	}

	coord, err := parseIPLookup(body)
	if err != nil {
		return geo.Coordinate{}, unavailable(err, conf.LocationProviderIP)
	}
	return coord, nil
}

// parseIPLookup reads latitude/longitude (ipapi.co) or lat/lon (ip-api.com).
func parseIPLookup(body []byte) (geo.Coordinate, error) {
	obj, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("malformed lookup response: %w", err)
	}

	if failed, err := obj.GetBoolean("error"); err == nil && failed {
		reason, _ := obj.GetString("reason")
		return geo.Coordinate{}, fmt.Errorf("lookup failed: %s", reason)
	}
	if status, err := obj.GetString("status"); err == nil && status == "fail" {
		msg, _ := obj.GetString("message")
		return geo.Coordinate{}, fmt.Errorf("lookup failed: %s", msg)
	}

	lat, latOK := number(obj, "latitude", "lat")
	lng, lngOK := number(obj, "longitude", "lon")
	if !latOK || !lngOK {
		return geo.Coordinate{}, fmt.Errorf("lookup response has no coordinates")
	}

	c := geo.Coordinate{Latitude: lat, Longitude: lng}
	if err := c.Validate(); err != nil {
		return geo.Coordinate{}, err
	}
	return c, nil
}

func number(obj *jason.Object, keys ...string) (float64, bool) {
	for _, key := range keys {
		v, err := obj.GetValue(key)
		if err != nil {
			continue
		}
		if f, err := v.Float64(); err == nil {
			return f, true
		}
		if s, err := v.String(); err == nil {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func unavailable(cause error, provider string) error {
	return errors.New(fmt.Errorf("%w: %w", ErrUnavailable, cause)).
		Component(componentName).
		Category(errors.CategoryGeolocation).
		Context("provider", provider).
		Build()
}

// FromSettings builds the Locator selected by the location settings.
func FromSettings(s *conf.LocationSettings, hc *httpclient.Client) (Locator, error) {
	switch s.Provider {
	case conf.LocationProviderStatic:
		return StaticLocator{Coordinate: geo.Coordinate{Latitude: s.Latitude, Longitude: s.Longitude}}, nil
	case conf.LocationProviderIP:
		return NewIPLocator(s.IPEndpoint, hc), nil
	case conf.LocationProviderNone, "":
		return DeniedLocator{}, nil
	default:
		return nil, errors.Newf("unknown location provider %q", s.Provider).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// ResolveOrDefault returns the located coordinate, or DefaultCenter when
// locating fails. The boolean reports whether the device was located.
func ResolveOrDefault(ctx context.Context, l Locator, log logger.Logger) (geo.Coordinate, bool) {
	if l == nil {
		return DefaultCenter, false
	}

	coord, err := l.Locate(ctx)
	if err != nil {
		if log != nil {
			log.Debug("using default map center",
				logger.Error(err),
				logger.Bool("permission_denied", errors.Is(err, ErrPermissionDenied)))
		}
		return DefaultCenter, false
	}
	return coord, true
}
