// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"net/url"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	ve.Errors = append(ve.Errors, validateINaturalistSettings(&settings.INaturalist)...)
	ve.Errors = append(ve.Errors, validateSearchSettings(&settings.Search)...)
	ve.Errors = append(ve.Errors, validateLocationSettings(&settings.Location)...)
	ve.Errors = append(ve.Errors, validateWebServerSettings(&settings.WebServer)...)

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateINaturalistSettings(s *INaturalistSettings) []string {
	var errs []string

	if u, err := url.Parse(s.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("inaturalist.baseurl must be an absolute URL, got %q", s.BaseURL))
	}
	if s.Timeout < 0 {
		errs = append(errs, "inaturalist.timeout must not be negative")
	}
	if s.RateLimit < 0 {
		errs = append(errs, "inaturalist.ratelimit must not be negative")
	}

	return errs
}

func validateSearchSettings(s *SearchSettings) []string {
	var errs []string

	if s.MinRadius <= 0 {
		errs = append(errs, "search.minradius must be positive")
	}
	if s.MaxRadius < s.MinRadius {
		errs = append(errs, fmt.Sprintf("search.maxradius (%g) must be at least search.minradius (%g)", s.MaxRadius, s.MinRadius))
	}
	if s.DefaultRadius < s.MinRadius || s.DefaultRadius > s.MaxRadius {
		errs = append(errs, fmt.Sprintf("search.defaultradius (%g) must be between %g and %g", s.DefaultRadius, s.MinRadius, s.MaxRadius))
	}

	return errs
}

func validateLocationSettings(s *LocationSettings) []string {
	var errs []string

	switch s.Provider {
	case LocationProviderStatic:
		if s.Latitude < -90 || s.Latitude > 90 {
			errs = append(errs, "location.latitude must be between -90 and 90")
		}
		if s.Longitude < -180 || s.Longitude > 180 {
			errs = append(errs, "location.longitude must be between -180 and 180")
		}
	case LocationProviderIP:
		if u, err := url.Parse(s.IPEndpoint); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("location.ipendpoint must be an absolute URL, got %q", s.IPEndpoint))
		}
	case LocationProviderNone:
	default:
		errs = append(errs, fmt.Sprintf("location.provider must be one of static, ip or none, got %q", s.Provider))
	}

	return errs
}

func validateWebServerSettings(s *WebServerSettings) []string {
	var errs []string

	if _, _, err := net.SplitHostPort(s.Listen); err != nil {
		errs = append(errs, fmt.Sprintf("webserver.listen is not a valid address: %v", err))
	}
	if s.SessionTTL <= 0 {
		errs = append(errs, "webserver.sessionttl must be positive")
	}

	return errs
}
