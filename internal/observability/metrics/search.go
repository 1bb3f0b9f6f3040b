package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SearchMetrics contains Prometheus metrics for observation searches
type SearchMetrics struct {
	apiRequestsTotal    *prometheus.CounterVec
	apiRequestDuration  *prometheus.HistogramVec
	resultsPerPage      prometheus.Histogram
	sessionOpsTotal     *prometheus.CounterVec
	supersededTotal     prometheus.Counter
	activeSessionsGauge prometheus.Gauge
}

// NewSearchMetrics creates and registers search metrics on registry
func NewSearchMetrics(registry prometheus.Registerer) (*SearchMetrics, error) {
	m := &SearchMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SearchMetrics) initMetrics() {
	m.apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mynat_inaturalist_requests_total",
			Help: "Total number of observation API requests by outcome",
		},
		[]string{"endpoint", "outcome"}, // endpoint: user, global
	)

	m.apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "mynat_inaturalist_request_duration_seconds",
			Help: "Time taken by observation API requests, including rate limiter waits",
			// 10ms to ~20s
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
		},
		[]string{"endpoint"},
	)

	m.resultsPerPage = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mynat_search_results_per_page",
		Help:    "Number of observations returned per fetched page",
		Buckets: []float64{0, 1, 10, 50, 100, 150, 200},
	})

	m.sessionOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mynat_search_operations_total",
			Help: "Total number of search session operations by result",
		},
		[]string{"operation", "status"}, // status: success, error, superseded
	)

	m.supersededTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mynat_search_superseded_total",
		Help: "Total number of search results discarded because a newer request started",
	})

	m.activeSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mynat_search_active_sessions",
		Help: "Number of search sessions held by the HTTP API",
	})
}

// Describe implements the Collector interface
func (m *SearchMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.apiRequestsTotal.Describe(ch)
	m.apiRequestDuration.Describe(ch)
	m.resultsPerPage.Describe(ch)
	m.sessionOpsTotal.Describe(ch)
	m.supersededTotal.Describe(ch)
	m.activeSessionsGauge.Describe(ch)
}

// Collect implements the Collector interface
func (m *SearchMetrics) Collect(ch chan<- prometheus.Metric) {
	m.apiRequestsTotal.Collect(ch)
	m.apiRequestDuration.Collect(ch)
	m.resultsPerPage.Collect(ch)
	m.sessionOpsTotal.Collect(ch)
	m.supersededTotal.Collect(ch)
	m.activeSessionsGauge.Collect(ch)
}

// RecordAPIRequest records one observation API request
func (m *SearchMetrics) RecordAPIRequest(endpoint, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.apiRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.apiRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordResults records the size of a fetched page
func (m *SearchMetrics) RecordResults(count int) {
	if m == nil {
		return
	}
	m.resultsPerPage.Observe(float64(count))
}

// RecordSessionOperation records a Search or GoToPage call
func (m *SearchMetrics) RecordSessionOperation(operation, status string) {
	if m == nil {
		return
	}
	m.sessionOpsTotal.WithLabelValues(operation, status).Inc()
}

// RecordSuperseded records a result discarded in favour of a newer request
func (m *SearchMetrics) RecordSuperseded() {
	if m == nil {
		return
	}
	m.supersededTotal.Inc()
}

// SetActiveSessions sets the number of sessions held by the API
func (m *SearchMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessionsGauge.Set(float64(n))
}
