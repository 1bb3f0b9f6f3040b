package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingReporter captures reported errors
type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(err *EnhancedError) { r.reported = append(r.reported, err) }
func (r *recordingReporter) IsEnabled() bool                { return true }

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestBuilderKeepsContextAndCategory(t *testing.T) {
	ee := Newf("remote returned %d", 503).
		Category(CategoryRemoteAPI).
		Component("inaturalist").
		Context("status_code", 503).
		Priority("bogus").
		Build()

	assert.Equal(t, CategoryRemoteAPI, ee.Category)
	assert.Equal(t, "inaturalist", ee.GetComponent())
	assert.Equal(t, 503, ee.GetContext()["status_code"])
	assert.Equal(t, PriorityMedium, ee.GetPriority())
	assert.True(t, IsCategory(ee, CategoryRemoteAPI))
	assert.False(t, IsNotFound(ee))
}

func TestEnhancedErrorUnwrapsToSentinel(t *testing.T) {
	sentinel := NewStd("nothing to search")
	ee := New(fmt.Errorf("empty filter: %w", sentinel)).
		Category(CategoryValidation).
		Build()

	require.ErrorIs(t, ee, sentinel)

	wrapped := fmt.Errorf("search failed: %w", ee)
	var target *EnhancedError
	require.ErrorAs(t, wrapped, &target)
	assert.Equal(t, CategoryValidation, target.Category)
}

func TestCategoryEquality(t *testing.T) {
	a := New(NewStd("a")).Category(CategoryPagination).Build()
	b := New(NewStd("b")).Category(CategoryPagination).Build()
	c := New(NewStd("c")).Category(CategoryState).Build()

	assert.ErrorIs(t, a, b)
	assert.NotErrorIs(t, a, c)
}

func TestReporterReceivesErrors(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(NewStd("connection refused")).Build()

	require.Len(t, reporter.reported, 1)
	assert.Same(t, ee, reporter.reported[0])
	assert.Equal(t, CategoryNetwork, ee.Category)
}

func TestGenerateErrorTitle(t *testing.T) {
	ee := New(NewStd("boom")).
		Component("inaturalist").
		Category(CategoryRemoteAPI).
		Context("operation", "fetch_observations").
		Build()

	assert.Equal(t, "Inaturalist Remote API Error Fetch Observations", generateErrorTitle(ee))
}
