// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/gingerhendrix/my-nat/internal/logger"
)

// Search and location defaults shared with the packages that consume them.
const (
	DefaultBaseURL       = "https://www.inaturalist.org"
	DefaultRadius        = 1000.0
	MinRadius            = 100.0
	MaxRadius            = 5000.0
	DefaultLatitude      = 37.7749
	DefaultLongitude     = -122.4194
	DefaultIPEndpoint    = "https://ipapi.co/json/"
	DefaultListenAddress = ":8080"
)

// Location providers
const (
	LocationProviderStatic = "static"
	LocationProviderIP     = "ip"
	LocationProviderNone   = "none"
)

// setDefaultConfig sets default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("inaturalist.baseurl", DefaultBaseURL)
	v.SetDefault("inaturalist.timeout", 30*time.Second)
	v.SetDefault("inaturalist.useragent", "mynat/1.0 (+https://github.com/gingerhendrix/my-nat)")
	v.SetDefault("inaturalist.ratelimit", 1.0)

	v.SetDefault("search.defaultradius", DefaultRadius)
	v.SetDefault("search.minradius", MinRadius)
	v.SetDefault("search.maxradius", MaxRadius)

	v.SetDefault("location.provider", LocationProviderStatic)
	v.SetDefault("location.latitude", DefaultLatitude)
	v.SetDefault("location.longitude", DefaultLongitude)
	v.SetDefault("location.ipendpoint", DefaultIPEndpoint)

	v.SetDefault("logging.defaultlevel", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.fileoutput.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.fileoutput.path", logger.DefaultLogPath)
	v.SetDefault("logging.fileoutput.level", logger.DefaultLogLevel)

	v.SetDefault("webserver.listen", DefaultListenAddress)
	v.SetDefault("webserver.sessionttl", 30*time.Minute)

	v.SetDefault("telemetry.sentrydsn", "")
	v.SetDefault("telemetry.sentrydsnfile", "")
	v.SetDefault("telemetry.environment", "production")
}
