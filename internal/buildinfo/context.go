// Package buildinfo contains build-time metadata kept apart from user configuration
package buildinfo

// UnknownValue is reported for metadata the build did not inject
const UnknownValue = "unknown"

// Context contains build-time metadata that is not user-configurable.
// Values are injected with -ldflags at build time.
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string
}

// NewContext creates build metadata from the injected values
func NewContext(version, buildDate string) *Context {
	return &Context{
		Version:   version,
		BuildDate: buildDate,
	}
}

// GetVersion returns the version, or UnknownValue
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate returns the build date, or UnknownValue
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// Release returns the release name used for error reports, e.g. mynat@1.2.0
func (c *Context) Release() string {
	return "mynat@" + c.GetVersion()
}
