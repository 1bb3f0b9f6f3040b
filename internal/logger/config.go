package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel string            `yaml:"defaultlevel" json:"default_level"` // default log level for all modules
	Timezone     string            `yaml:"timezone" json:"timezone"`          // "Local", "UTC", or IANA name like "America/Los_Angeles"
	Console      *ConsoleOutput    `yaml:"console" json:"console"`            // console output configuration
	FileOutput   *FileOutput       `yaml:"fileoutput" json:"file_output"`     // file output configuration
	ModuleLevels map[string]string `yaml:"modulelevels" json:"module_levels"` // per-module log levels
}

// ConsoleOutput represents console logging configuration.
// Console output is human-readable text without timestamps.
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Level   string `yaml:"level" json:"level"`
}

// FileOutput represents file logging configuration.
// File output is JSON with RFC3339 timestamps.
type FileOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Level   string `yaml:"level" json:"level"`
}

// Default values for logging configuration, mirrored in conf/defaults.go.
const (
	DefaultLogLevel       = "info"
	DefaultLogPath        = "logs/mynat.log"
	DefaultConsoleEnabled = true
	DefaultFileEnabled    = false
)

// applyConfigDefaults fills nil sections so a sparse config still logs to the console.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg == nil {
		return
	}

	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}

	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{
			Enabled: DefaultConsoleEnabled,
			Level:   cfg.DefaultLevel,
		}
	}

	if cfg.FileOutput == nil {
		cfg.FileOutput = &FileOutput{
			Enabled: DefaultFileEnabled,
			Path:    DefaultLogPath,
			Level:   cfg.DefaultLevel,
		}
	}
}
