// Package privacy scrubs user data from text that leaves the process, such as
// error reports. Searches carry two kinds of personal data: the location the
// user searched around and the observer login they searched for.
package privacy

import (
	"regexp"
)

// Placeholders written in place of removed data
const (
	RedactedQuery    = "[REDACTED]"
	RedactedKey      = "[API_KEY_REDACTED]"
	RedactedLocation = "[LOCATION_REDACTED]"
	RedactedUser     = "[USER_REDACTED]"
)

// Pre-compiled patterns
var (
	urlQueryPattern   = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	queryParamPattern = regexp.MustCompile(`[?&]([^=\s]+)=([^&\s]+)`)
	credentialPattern = regexp.MustCompile(`(?i)(?:api[_-]?key|token|auth)[=:]\S+`)
	userInfoPattern   = regexp.MustCompile(`(https?://)[^/@\s]+@`)

	// /observations/<login>.json is the per-observer endpoint
	observerPathPattern = regexp.MustCompile(`(/observations/)[^/?\s.]+(\.json)`)

	// a latitude/longitude pair with at least three decimals
	coordinatePattern = regexp.MustCompile(`-?\d{1,3}\.\d{3,},\s*-?\d{1,3}\.\d{3,}`)
)

// ScrubMessage removes query strings, credentials, observer logins and
// coordinates from message.
func ScrubMessage(message string) string {
	scrubbed := userInfoPattern.ReplaceAllString(message, "$1")
	scrubbed = urlQueryPattern.ReplaceAllString(scrubbed, "$1?"+RedactedQuery)
	scrubbed = queryParamPattern.ReplaceAllString(scrubbed, "?"+RedactedQuery)
	scrubbed = credentialPattern.ReplaceAllString(scrubbed, RedactedKey)
	scrubbed = observerPathPattern.ReplaceAllString(scrubbed, "${1}"+RedactedUser+"${2}")
	return coordinatePattern.ReplaceAllString(scrubbed, RedactedLocation)
}

// ScrubValue scrubs v when it is a string and returns it unchanged otherwise.
func ScrubValue(v any) any {
	if s, ok := v.(string); ok {
		return ScrubMessage(s)
	}
	return v
}
