package inaturalist

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gingerhendrix/my-nat/internal/errors"
	"github.com/gingerhendrix/my-nat/internal/geo"
	"github.com/gingerhendrix/my-nat/internal/observation"
)

const (
	// DefaultBaseURL is the public iNaturalist site root
	DefaultBaseURL = "https://www.inaturalist.org"

	// PerPage is the fixed page size requested from the API
	PerPage = 200

	// TotalEntriesHeader carries the total match count across all pages
	TotalEntriesHeader = "X-Total-Entries"

	// DefaultRequestsPerSecond follows the published API etiquette
	DefaultRequestsPerSecond = 1.0

	defaultTimeout = 30 * time.Second

	// maxBodySize caps a single page; 200 records with photos stay well below it
	maxBodySize = 32 << 20
)

// Config represents the configuration for the iNaturalist client
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64 // 0 disables pacing
}

// DefaultConfig returns the default configuration for the iNaturalist client
func DefaultConfig() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		Timeout:           defaultTimeout,
		RequestsPerSecond: DefaultRequestsPerSecond,
	}
}

// Query selects one page of observations. Username and BoundingBox may be
// combined; Origin is carried along for ranking and never sent.
type Query struct {
	Username    string
	BoundingBox *geo.BoundingBox
	Origin      *geo.Coordinate
	Page        int
}

// Page is one decoded page of results.
type Page struct {
	Observations []observation.Observation
	TotalEntries int
	Page         int
}

// TotalPages returns ceil(TotalEntries / PerPage)
func (p *Page) TotalPages() int {
	return TotalPages(p.TotalEntries)
}

// TotalPages returns the number of pages needed for total results.
func TotalPages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + PerPage - 1) / PerPage
}

// RemoteError reports a non-success HTTP status from the API.
type RemoteError struct {
	StatusCode int
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("inaturalist: remote API returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ErrorCategory implements errors.CategorizedError
func (e *RemoteError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryRemoteAPI
}

// ParseError reports a response body that could not be decoded.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("inaturalist: malformed response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ErrorCategory implements errors.CategorizedError
func (e *ParseError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryFileParsing
}
