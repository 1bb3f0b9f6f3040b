// conf/utils.go: filesystem helpers for locating configuration
package conf

import (
	"os"
	"path/filepath"

	"github.com/gingerhendrix/my-nat/internal/errors"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "get_home_directory").
			Build()
	}

	return []string{
		".",
		filepath.Join(homeDir, ".config", "mynat"),
		"/etc/mynat",
	}, nil
}
