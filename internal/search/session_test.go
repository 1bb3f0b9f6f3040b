package search

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gingerhendrix/my-nat/internal/errors"
	"github.com/gingerhendrix/my-nat/internal/geo"
	"github.com/gingerhendrix/my-nat/internal/inaturalist"
	"github.com/gingerhendrix/my-nat/internal/observability/metrics"
	"github.com/gingerhendrix/my-nat/internal/observation"
	"github.com/gingerhendrix/my-nat/internal/testutil"
)

var sanFrancisco = geo.Coordinate{Latitude: 37.7749, Longitude: -122.4194}

// fetchFunc adapts a function to Fetcher and records every query.
type fetchFunc struct {
	mu      sync.Mutex
	queries []inaturalist.Query
	fn      func(ctx context.Context, q inaturalist.Query) (*inaturalist.Page, error)
}

func (f *fetchFunc) Fetch(ctx context.Context, q inaturalist.Query) (*inaturalist.Page, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	return f.fn(ctx, q)
}

func (f *fetchFunc) lastQuery(t *testing.T) inaturalist.Query {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.queries)
	return f.queries[len(f.queries)-1]
}

// staticFetcher returns the given observations and total for every page.
func staticFetcher(total int, obs ...observation.Observation) *fetchFunc {
	return &fetchFunc{fn: func(_ context.Context, q inaturalist.Query) (*inaturalist.Page, error) {
		return &inaturalist.Page{Observations: obs, TotalEntries: total, Page: q.Page}, nil
	}}
}

func obsAt(id int64, lat, lng float64) observation.Observation {
	return observation.Observation{ID: id, Coordinate: &geo.Coordinate{Latitude: lat, Longitude: lng}}
}

func ids(obs []observation.Observation) []int64 {
	out := make([]int64, len(obs))
	for i := range obs {
		out[i] = obs[i].ID
	}
	return out
}

func TestSearch_InvalidFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		filter Filter
	}{
		{"empty", Filter{}},
		{"blank username", Filter{Username: "   "}},
		{"radius too small", Filter{Location: &sanFrancisco, RadiusMeters: 50}},
		{"radius too large", Filter{Location: &sanFrancisco, RadiusMeters: 5001}},
		{"radius NaN", Filter{Location: &sanFrancisco, RadiusMeters: math.NaN()}},
		{"radius infinite", Filter{Location: &sanFrancisco, RadiusMeters: math.Inf(1)}},
		{"latitude out of range", Filter{Location: &geo.Coordinate{Latitude: 91}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fetcher := staticFetcher(0)
			s := NewSession(fetcher)

			res, err := s.Search(t.Context(), tt.filter)
			require.ErrorIs(t, err, ErrInvalidFilter)
			assert.Nil(t, res)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
			assert.Empty(t, fetcher.queries, "no request is issued for an invalid filter")

			_, active := s.Snapshot()
			assert.False(t, active)
		})
	}
}

func TestSearch_UsernameOnly(t *testing.T) {
	t.Parallel()

	fetcher := staticFetcher(3, observation.Observation{ID: 1}, observation.Observation{ID: 2})
	s := NewSession(fetcher)

	res, err := s.Search(t.Context(), Filter{Username: " alice "})
	require.NoError(t, err)

	q := fetcher.lastQuery(t)
	assert.Equal(t, "alice", q.Username)
	assert.Nil(t, q.BoundingBox)
	assert.Nil(t, q.Origin)
	assert.Equal(t, 1, q.Page)

	assert.Equal(t, []int64{1, 2}, ids(res.Observations), "no location keeps server order")
	for _, o := range res.Observations {
		assert.Nil(t, o.DistanceMeters)
	}
	assert.Equal(t, 3, res.TotalMatchCount)
	assert.Equal(t, 1, res.CurrentPage)
	assert.Equal(t, 1, res.TotalPages)
	assert.Equal(t, inaturalist.PerPage, res.PageSize)
}

func TestSearch_LocationRanksByDistance(t *testing.T) {
	t.Parallel()

	far := obsAt(1, 37.80, -122.4194)
	none := observation.Observation{ID: 2}
	near := obsAt(3, 37.7750, -122.4194)
	fetcher := staticFetcher(3, far, none, near)
	s := NewSession(fetcher)

	res, err := s.Search(t.Context(), Filter{Location: &sanFrancisco})
	require.NoError(t, err)

	q := fetcher.lastQuery(t)
	require.NotNil(t, q.BoundingBox)
	assert.Equal(t, geo.NewBoundingBox(sanFrancisco, DefaultRadius), *q.BoundingBox, "zero radius uses the default")
	require.NotNil(t, q.Origin)
	assert.Equal(t, sanFrancisco, *q.Origin)

	assert.Equal(t, []int64{3, 1, 2}, ids(res.Observations))
	require.NotNil(t, res.Observations[0].DistanceMeters)
	assert.Less(t, *res.Observations[0].DistanceMeters, *res.Observations[1].DistanceMeters)
	assert.Nil(t, res.Observations[2].DistanceMeters)
	assert.InDelta(t, DefaultRadius, res.Filter.RadiusMeters, 0)
}

func TestSearch_UsernameAndLocation(t *testing.T) {
	t.Parallel()

	fetcher := staticFetcher(0)
	s := NewSession(fetcher)

	_, err := s.Search(t.Context(), Filter{Username: "bob", Location: &sanFrancisco, RadiusMeters: 2500})
	require.NoError(t, err)

	q := fetcher.lastQuery(t)
	assert.Equal(t, "bob", q.Username)
	require.NotNil(t, q.BoundingBox)
	assert.Equal(t, geo.NewBoundingBox(sanFrancisco, 2500), *q.BoundingBox)
}

func TestGoToPage_NoActiveSearch(t *testing.T) {
	t.Parallel()

	s := NewSession(staticFetcher(0))
	_, err := s.GoToPage(t.Context(), 1)
	require.ErrorIs(t, err, ErrNoActiveSearch)

	_, err = s.NextPage(t.Context())
	require.ErrorIs(t, err, ErrNoActiveSearch)
}

func TestGoToPage_Bounds(t *testing.T) {
	t.Parallel()

	fetcher := staticFetcher(450) // 3 pages
	s := NewSession(fetcher)
	_, err := s.Search(t.Context(), Filter{Username: "alice"})
	require.NoError(t, err)

	for _, n := range []int{0, -1, 4} {
		_, err := s.GoToPage(t.Context(), n)
		require.ErrorIs(t, err, ErrPageOutOfRange, "page %d", n)
		assert.True(t, errors.IsCategory(err, errors.CategoryPagination))
	}

	res, err := s.GoToPage(t.Context(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, res.CurrentPage)
	assert.Equal(t, 3, fetcher.lastQuery(t).Page)
	assert.Equal(t, "alice", fetcher.lastQuery(t).Username, "the active filter is preserved")
	assert.False(t, res.HasNext())
	assert.True(t, res.HasPrev())

	_, err = s.NextPage(t.Context())
	require.ErrorIs(t, err, ErrPageOutOfRange)

	res, err = s.PrevPage(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, res.CurrentPage)
}

func TestGoToPage_ZeroTotal(t *testing.T) {
	t.Parallel()

	s := NewSession(staticFetcher(0))
	res, err := s.Search(t.Context(), Filter{Username: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, res.Observations)
	assert.Equal(t, 0, res.TotalPages)

	_, err = s.GoToPage(t.Context(), 1)
	require.ErrorIs(t, err, ErrPageOutOfRange)
}

func TestGoToPage_AdoptsNewTotal(t *testing.T) {
	t.Parallel()

	total := 450
	fetcher := &fetchFunc{fn: func(_ context.Context, q inaturalist.Query) (*inaturalist.Page, error) {
		return &inaturalist.Page{TotalEntries: total, Page: q.Page}, nil
	}}
	s := NewSession(fetcher)
	_, err := s.Search(t.Context(), Filter{Username: "alice"})
	require.NoError(t, err)

	total = 150
	res, err := s.GoToPage(t.Context(), 2)
	require.NoError(t, err)
	assert.Equal(t, 150, res.TotalMatchCount)
	assert.Equal(t, 1, res.TotalPages)
}

func TestFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	fail := false
	fetcher := &fetchFunc{fn: func(_ context.Context, q inaturalist.Query) (*inaturalist.Page, error) {
		if fail {
			return nil, errors.New(&inaturalist.RemoteError{StatusCode: 500}).
				Category(errors.CategoryRemoteAPI).
				Build()
		}
		return &inaturalist.Page{Observations: []observation.Observation{{ID: 9}}, TotalEntries: 400, Page: q.Page}, nil
	}}
	s := NewSession(fetcher)
	before, err := s.Search(t.Context(), Filter{Username: "alice"})
	require.NoError(t, err)

	fail = true
	_, err = s.GoToPage(t.Context(), 2)
	var remoteErr *inaturalist.RemoteError
	require.ErrorAs(t, err, &remoteErr)

	_, err = s.Search(t.Context(), Filter{Username: "carol"})
	require.ErrorAs(t, err, &remoteErr)

	after, ok := s.Snapshot()
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	s := NewSession(staticFetcher(1, obsAt(1, 37.775, -122.419)))
	_, err := s.Search(t.Context(), Filter{Location: &sanFrancisco})
	require.NoError(t, err)

	snap, ok := s.Snapshot()
	require.True(t, ok)
	*snap.Observations[0].DistanceMeters = -1
	snap.Filter.Location.Latitude = 0

	again, _ := s.Snapshot()
	assert.Positive(t, *again.Observations[0].DistanceMeters)
	assert.InDelta(t, sanFrancisco.Latitude, again.Filter.Location.Latitude, 0)
}

func TestSupersede_CancelsInFlight(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	fetcher := &fetchFunc{fn: func(ctx context.Context, q inaturalist.Query) (*inaturalist.Page, error) {
		if q.Username == "slow" {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &inaturalist.Page{Observations: []observation.Observation{{ID: 2}}, TotalEntries: 1, Page: q.Page}, nil
	}}

	reg := prometheus.NewRegistry()
	m, err := metrics.NewSearchMetrics(reg)
	require.NoError(t, err)
	s := NewSession(fetcher, WithMetrics(m))

	var wg sync.WaitGroup
	var slowErr error
	wg.Go(func() {
		_, slowErr = s.Search(t.Context(), Filter{Username: "slow"})
	})

	testutil.WaitForChannel(t, started, testutil.DefaultTestTimeout, "slow search did not start")
	res, err := s.Search(t.Context(), Filter{Username: "fast"})
	require.NoError(t, err)
	wg.Wait()

	require.ErrorIs(t, slowErr, ErrSuperseded)
	assert.Equal(t, []int64{2}, ids(res.Observations))

	snap, _ := s.Snapshot()
	assert.Equal(t, "fast", snap.Filter.Username)
	assert.InDelta(t, 1, counterValue(t, reg, "mynat_search_superseded_total"), 0)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			require.NotEmpty(t, mf.GetMetric())
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestSupersede_StaleArrivalDiscarded(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	fetcher := &fetchFunc{fn: func(_ context.Context, q inaturalist.Query) (*inaturalist.Page, error) {
		if q.Username == "slow" {
			close(started)
			<-release // ignores cancellation and answers late
			return &inaturalist.Page{Observations: []observation.Observation{{ID: 1}}, TotalEntries: 999, Page: q.Page}, nil
		}
		return &inaturalist.Page{Observations: []observation.Observation{{ID: 2}}, TotalEntries: 1, Page: q.Page}, nil
	}}
	s := NewSession(fetcher)

	done := make(chan error, 1)
	go func() {
		_, err := s.Search(t.Context(), Filter{Username: "slow"})
		done <- err
	}()

	<-started
	_, err := s.Search(t.Context(), Filter{Username: "fast"})
	require.NoError(t, err)
	close(release)

	err = testutil.WaitForChannel(t, done, testutil.DefaultTestTimeout, "slow search did not return")
	require.ErrorIs(t, err, ErrSuperseded)

	snap, _ := s.Snapshot()
	assert.Equal(t, 1, snap.TotalMatchCount)
	assert.Equal(t, []int64{2}, ids(snap.Observations))
}

func TestReset(t *testing.T) {
	t.Parallel()

	s := NewSession(staticFetcher(10, observation.Observation{ID: 1}))
	_, err := s.Search(t.Context(), Filter{Username: "alice"})
	require.NoError(t, err)

	s.Reset()
	_, ok := s.Snapshot()
	assert.False(t, ok)

	_, err = s.GoToPage(t.Context(), 1)
	require.ErrorIs(t, err, ErrNoActiveSearch)
}

func TestWithRadiusBounds(t *testing.T) {
	t.Parallel()

	fetcher := staticFetcher(0)
	s := NewSession(fetcher, WithRadiusBounds(500, 200, 800))

	_, err := s.Search(t.Context(), Filter{Location: &sanFrancisco, RadiusMeters: 900})
	require.ErrorIs(t, err, ErrInvalidFilter)

	_, err = s.Search(t.Context(), Filter{Location: &sanFrancisco})
	require.NoError(t, err)
	assert.Equal(t, geo.NewBoundingBox(sanFrancisco, 500), *fetcher.lastQuery(t).BoundingBox)
}
