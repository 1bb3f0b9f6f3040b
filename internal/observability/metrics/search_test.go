package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchMetricsRecord(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewSearchMetrics(registry)
	require.NoError(t, err)

	m.RecordAPIRequest("global", OutcomeSuccess, 120*time.Millisecond)
	m.RecordAPIRequest("global", OutcomeSuccess, 80*time.Millisecond)
	m.RecordAPIRequest("user", OutcomeRemoteError, 10*time.Millisecond)
	m.RecordSessionOperation(OpSearch, "success")
	m.RecordSuperseded()
	m.RecordResults(200)
	m.SetActiveSessions(3)

	assert.InDelta(t, 2, testutil.ToFloat64(m.apiRequestsTotal.WithLabelValues("global", OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.apiRequestsTotal.WithLabelValues("user", OutcomeRemoteError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.sessionOpsTotal.WithLabelValues(OpSearch, "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.supersededTotal), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.activeSessionsGauge), 0)

	families, err := registry.Gather()
	require.NoError(t, err)

	hist := findFamily(families, "mynat_inaturalist_request_duration_seconds")
	require.NotNil(t, hist)
	assert.Equal(t, dto.MetricType_HISTOGRAM, hist.GetType())

	var samples uint64
	for _, metric := range hist.GetMetric() {
		samples += metric.GetHistogram().GetSampleCount()
	}
	assert.Equal(t, uint64(3), samples)
}

func TestSearchMetricsNilSafe(t *testing.T) {
	var m *SearchMetrics

	assert.NotPanics(t, func() {
		m.RecordAPIRequest("global", OutcomeSuccess, time.Second)
		m.RecordResults(1)
		m.RecordSessionOperation(OpGoToPage, "error")
		m.RecordSuperseded()
		m.SetActiveSessions(0)
	})
}

func TestDuplicateRegistrationFails(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewSearchMetrics(registry)
	require.NoError(t, err)

	_, err = NewSearchMetrics(registry)
	assert.Error(t, err)
}

func TestHTTPMetricsRecord(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewHTTPMetrics(registry)
	require.NoError(t, err)

	m.RecordHTTPRequest("GET", "/api/v1/sessions/:id", 404, 2*time.Millisecond)
	m.RecordHTTPRequestError("GET", "/api/v1/sessions/:id", "not-found")

	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/v1/sessions/:id", "404")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequestErrors.WithLabelValues("GET", "/api/v1/sessions/:id", "not-found")), 0)
}

func findFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}
