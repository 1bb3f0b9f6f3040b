// env.go - environment variable bindings for mynat
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. MYNAT_SEARCH_DEFAULTRADIUS.
const EnvPrefix = "MYNAT"

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the explicitly validated environment variables.
// Other keys are still picked up through AutomaticEnv.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "MYNAT_DEBUG", validateEnvBool},
		{"inaturalist.baseurl", "MYNAT_INATURALIST_BASEURL", validateEnvURL},
		{"inaturalist.ratelimit", "MYNAT_INATURALIST_RATELIMIT", validateEnvNonNegative},
		{"search.defaultradius", "MYNAT_SEARCH_DEFAULTRADIUS", validateEnvNonNegative},
		{"location.provider", "MYNAT_LOCATION_PROVIDER", nil},
		{"location.latitude", "MYNAT_LOCATION_LATITUDE", validateEnvLatitude},
		{"location.longitude", "MYNAT_LOCATION_LONGITUDE", validateEnvLongitude},
		{"telemetry.sentrydsn", "MYNAT_TELEMETRY_SENTRYDSN", nil},
		{"telemetry.sentrydsnfile", "MYNAT_TELEMETRY_SENTRYDSNFILE", nil},
	}
}

// bindEnvVars binds environment variables to v and reports malformed values
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true/false, 1/0, t/f")
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

func validateEnvNonNegative(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid number: %w", err)
	}
	if f < 0 {
		return fmt.Errorf("must not be negative, got %g", f)
	}
	return nil
}

func validateEnvLatitude(value string) error {
	lat, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid latitude: %w", err)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %g", lat)
	}
	return nil
}

func validateEnvLongitude(value string) error {
	lng, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid longitude: %w", err)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %g", lng)
	}
	return nil
}
