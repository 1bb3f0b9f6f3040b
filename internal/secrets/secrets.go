// Package secrets resolves credentials given literally, through environment
// variable references, or in a file such as a Docker or Kubernetes secret.
// Secret values are never included in returned errors.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxFileSize bounds secret file reads; secrets are tokens, not documents
const maxFileSize = 64 * 1024

// Expand replaces ${VAR} and ${VAR:-fallback} references in s. A reference
// to an unset variable without a fallback is an error.
func Expand(s string) (string, error) {
	var missing []string

	expanded := os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if value := os.Getenv(name); value != "" {
			return value
		}
		if !hasFallback {
			missing = append(missing, name)
		}
		return fallback
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing environment variable(s): %s", strings.Join(missing, ", "))
	}
	return expanded, nil
}

// ReadFile returns the contents of the secret file at path without trailing
// newlines. Empty, oversized and non-regular files are errors.
func ReadFile(path string) (string, error) {
	clean := filepath.Clean(path)

	info, err := os.Stat(clean)
	if err != nil {
		return "", fmt.Errorf("secret file %s: %w", clean, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret file %s is not a regular file", clean)
	}
	if info.Size() > maxFileSize {
		return "", fmt.Errorf("secret file %s exceeds %d bytes", clean, maxFileSize)
	}

	f, err := os.Open(clean)
	if err != nil {
		return "", fmt.Errorf("secret file %s: %w", clean, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxFileSize))
	if err != nil {
		return "", fmt.Errorf("secret file %s: %w", clean, err)
	}

	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", clean)
	}
	return secret, nil
}

// Resolve returns the secret from filePath when set, otherwise value with
// environment references expanded. Both empty yields "".
func Resolve(filePath, value string) (string, error) {
	if filePath != "" {
		return ReadFile(filePath)
	}
	if value == "" {
		return "", nil
	}
	return Expand(value)
}
