// Package metrics provides the Prometheus collectors used by mynat.
package metrics

// Histogram bucket parameters shared by the collectors in this package.
const (
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)

// Outcome label values for remote requests.
const (
	OutcomeSuccess     = "success"
	OutcomeRemoteError = "remote_error"
	OutcomeParseError  = "parse_error"
	OutcomeNetwork     = "network_error"
	OutcomeCanceled    = "canceled"
)

// Operation label values for search sessions.
const (
	OpSearch   = "search"
	OpGoToPage = "goto_page"
)
