// config.go: settings struct for mynat and the functions that load and render it.
package conf

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gingerhendrix/my-nat/internal/logger"
)

// INaturalistSettings configures the observation API client.
type INaturalistSettings struct {
	BaseURL   string        `yaml:"baseurl"`   // API root, e.g. https://www.inaturalist.org
	Timeout   time.Duration `yaml:"timeout"`   // default request timeout when the caller sets none
	UserAgent string        `yaml:"useragent"` // User-Agent sent with every request
	RateLimit float64       `yaml:"ratelimit"` // maximum requests per second, 0 disables pacing
}

// SearchSettings bounds the search radius in meters.
type SearchSettings struct {
	DefaultRadius float64 `yaml:"defaultradius"` // radius used when a filter leaves it unset
	MinRadius     float64 `yaml:"minradius"`
	MaxRadius     float64 `yaml:"maxradius"`
}

// LocationSettings chooses how the device location is resolved.
type LocationSettings struct {
	Provider   string  `yaml:"provider"`   // static, ip or none
	Latitude   float64 `yaml:"latitude"`   // used by the static provider
	Longitude  float64 `yaml:"longitude"`  // used by the static provider
	IPEndpoint string  `yaml:"ipendpoint"` // JSON endpoint used by the ip provider
}

// WebServerSettings configures the HTTP API.
type WebServerSettings struct {
	Listen     string        `yaml:"listen"`     // listen address, e.g. :8080
	SessionTTL time.Duration `yaml:"sessionttl"` // idle expiry of search sessions
}

// TelemetrySettings configures optional Sentry error reporting.
type TelemetrySettings struct {
	SentryDSN     string `yaml:"sentrydsn"`     // empty disables reporting; ${VAR} references are expanded
	SentryDSNFile string `yaml:"sentrydsnfile"` // file holding the DSN, e.g. a Docker secret; wins over sentrydsn
	Environment   string `yaml:"environment"`   // sentry environment tag
}

// Settings contains all configuration options for mynat.
type Settings struct {
	Debug       bool                 `yaml:"debug"`
	INaturalist INaturalistSettings  `yaml:"inaturalist"`
	Search      SearchSettings       `yaml:"search"`
	Location    LocationSettings     `yaml:"location"`
	Logging     logger.LoggingConfig `yaml:"logging"`
	WebServer   WebServerSettings    `yaml:"webserver"`
	Telemetry   TelemetrySettings    `yaml:"telemetry"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables through the
// global viper instance, validates the result and stores it for GetSettings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	paths, err := GetDefaultConfigPaths()
	if err != nil {
		return nil, err
	}

	settings, err := load(viper.GetViper(), paths)
	if err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// load reads config.yaml from the first matching path into v. A missing file
// is not an error; defaults and environment still apply.
func load(v *viper.Viper, paths []string) (*Settings, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaultConfig(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// GetSettings returns the settings stored by the last successful Load
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// ConfigFileUsed returns the path of the config file viper read, if any
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// WriteYAML renders settings as YAML to w
func WriteYAML(w io.Writer, settings *Settings) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(settings); err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return enc.Close()
}
