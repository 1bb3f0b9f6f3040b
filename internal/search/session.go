// Package search holds the pagination state of one observation search and
// re-issues the active query page by page.
//
// A Session has a single logical cursor. Each Search or GoToPage call
// supersedes the one in flight: the older call's context is cancelled and,
// should its response still arrive, it is discarded with ErrSuperseded
// without touching state. Failed calls also leave state as it was.
package search

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/gingerhendrix/my-nat/internal/errors"
	"github.com/gingerhendrix/my-nat/internal/geo"
	"github.com/gingerhendrix/my-nat/internal/inaturalist"
	"github.com/gingerhendrix/my-nat/internal/observability/metrics"
	"github.com/gingerhendrix/my-nat/internal/observation"
)

const componentName = "search"

// Radius bounds in meters.
const (
	DefaultRadius = 1000.0
	MinRadius     = 100.0
	MaxRadius     = 5000.0
)

var (
	// ErrInvalidFilter is returned when a filter has neither username nor
	// location, or carries an invalid location or radius.
	ErrInvalidFilter = errors.NewStd("invalid search filter")

	// ErrNoActiveSearch is returned by page navigation before any search succeeded.
	ErrNoActiveSearch = errors.NewStd("no active search")

	// ErrPageOutOfRange is returned for pages outside 1..TotalPages.
	ErrPageOutOfRange = errors.NewStd("page out of range")

	// ErrSuperseded is returned by a call overtaken by a newer one.
	ErrSuperseded = errors.NewStd("superseded by a newer request")
)

// Fetcher retrieves one page of observations. *inaturalist.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, q inaturalist.Query) (*inaturalist.Page, error)
}

// Filter is what the user searches for. At least one of Username and
// Location must be set. A zero RadiusMeters means the session default.
type Filter struct {
	Username     string          `json:"username,omitempty"`
	Location     *geo.Coordinate `json:"location,omitempty"`
	RadiusMeters float64         `json:"radius_meters,omitempty"`
}

func (f Filter) clone() Filter {
	if f.Location != nil {
		loc := *f.Location
		f.Location = &loc
	}
	return f
}

// Result is the displayed state after a successful call.
type Result struct {
	Observations    []observation.Observation `json:"observations"`
	TotalMatchCount int                       `json:"total_match_count"`
	CurrentPage     int                       `json:"current_page"`
	TotalPages      int                       `json:"total_pages"`
	PageSize        int                       `json:"page_size"`
	Filter          Filter                    `json:"filter"`
}

// HasNext reports whether a later page exists.
func (r *Result) HasNext() bool {
	return r.CurrentPage < r.TotalPages
}

// HasPrev reports whether an earlier page exists.
func (r *Result) HasPrev() bool {
	return r.CurrentPage > 1
}

// Option configures a Session.
type Option func(*Session)

// WithRadiusBounds overrides the default, minimum and maximum radius.
// Non-positive values keep the built-in bound.
func WithRadiusBounds(defaultRadius, minRadius, maxRadius float64) Option {
	return func(s *Session) {
		if defaultRadius > 0 {
			s.defaultRadius = defaultRadius
		}
		if minRadius > 0 {
			s.minRadius = minRadius
		}
		if maxRadius > 0 {
			s.maxRadius = maxRadius
		}
	}
}

// WithMetrics records session operations.
func WithMetrics(m *metrics.SearchMetrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// Session is one search cursor. Safe for concurrent use.
type Session struct {
	fetcher       Fetcher
	defaultRadius float64
	minRadius     float64
	maxRadius     float64
	metrics       *metrics.SearchMetrics

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc // cancels the call in flight, if any

	active  *Filter // nil until a search succeeds
	page    int
	total   int
	results []observation.Observation
}

// NewSession creates an idle session fetching through f.
func NewSession(f Fetcher, opts ...Option) *Session {
	s := &Session{
		fetcher:       f,
		defaultRadius: DefaultRadius,
		minRadius:     MinRadius,
		maxRadius:     MaxRadius,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search validates f, resets to page 1 and fetches. When f has a location
// the query is restricted to the bounding box of the radius around it and
// results are ranked by distance from it.
func (s *Session) Search(ctx context.Context, f Filter) (*Result, error) {
	f, err := s.normalize(f)
	if err != nil {
		s.metrics.RecordSessionOperation(metrics.OpSearch, "invalid")
		return nil, err
	}
	return s.run(ctx, metrics.OpSearch, f, 1)
}

// GoToPage re-issues the active filter for page n, adopting whatever total
// the server reports.
func (s *Session) GoToPage(ctx context.Context, n int) (*Result, error) {
	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		s.metrics.RecordSessionOperation(metrics.OpGoToPage, "invalid")
		return nil, errors.New(ErrNoActiveSearch).
			Component(componentName).
			Category(errors.CategoryState).
			Context("page", n).
			Build()
	}
	totalPages := inaturalist.TotalPages(s.total)
	f := s.active.clone()
	s.mu.Unlock()

	if n < 1 || n > totalPages {
		s.metrics.RecordSessionOperation(metrics.OpGoToPage, "invalid")
		return nil, errors.New(fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, n, totalPages)).
			Component(componentName).
			Category(errors.CategoryPagination).
			Context("page", n).
			Context("total_pages", totalPages).
			Build()
	}

	return s.run(ctx, metrics.OpGoToPage, f, n)
}

// NextPage moves one page forward.
func (s *Session) NextPage(ctx context.Context) (*Result, error) {
	return s.GoToPage(ctx, s.currentPage()+1)
}

// PrevPage moves one page back.
func (s *Session) PrevPage(ctx context.Context) (*Result, error) {
	return s.GoToPage(ctx, s.currentPage()-1)
}

// Snapshot returns a copy of the displayed state, false before the first
// successful search.
func (s *Session) Snapshot() (*Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return nil, false
	}
	return s.resultLocked(), true
}

// Reset cancels any call in flight and returns the session to idle.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.active = nil
	s.page = 0
	s.total = 0
	s.results = nil
}

func (s *Session) currentPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// normalize trims the username, applies the default radius and validates.
func (s *Session) normalize(f Filter) (Filter, error) {
	f = f.clone()
	f.Username = strings.TrimSpace(f.Username)
	if f.RadiusMeters == 0 {
		f.RadiusMeters = s.defaultRadius
	}

	var reason string
	switch {
	case f.Username == "" && f.Location == nil:
		reason = "username or location required"
	case f.Location != nil && f.Location.Validate() != nil:
		reason = f.Location.Validate().Error()
	case f.Location != nil && math.IsNaN(f.RadiusMeters):
		reason = "radius is not a number"
	case f.Location != nil && (f.RadiusMeters < s.minRadius || f.RadiusMeters > s.maxRadius):
		reason = fmt.Sprintf("radius %.0fm outside %.0f-%.0fm", f.RadiusMeters, s.minRadius, s.maxRadius)
	default:
		return f, nil
	}

	return Filter{}, errors.New(fmt.Errorf("%w: %s", ErrInvalidFilter, reason)).
		Component(componentName).
		Category(errors.CategoryValidation).
		Context("has_username", f.Username != "").
		Context("has_location", f.Location != nil).
		Context("radius_meters", f.RadiusMeters).
		Build()
}

func buildQuery(f Filter, page int) inaturalist.Query {
	q := inaturalist.Query{Username: f.Username, Page: page}
	if f.Location != nil {
		box := geo.NewBoundingBox(*f.Location, f.RadiusMeters)
		origin := *f.Location
		q.BoundingBox = &box
		q.Origin = &origin
	}
	return q
}

// run performs one superseding fetch and commits it if still current.
func (s *Session) run(ctx context.Context, op string, f Filter, page int) (*Result, error) {
	q := buildQuery(f, page)

	s.mu.Lock()
	s.generation++
	gen := s.generation
	if s.cancel != nil {
		s.cancel()
	}
	callCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	fetched, err := s.fetcher.Fetch(callCtx, q)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.metrics.RecordSessionOperation(op, "superseded")
		s.metrics.RecordSuperseded()
		return nil, errors.New(ErrSuperseded).
			Component(componentName).
			Category(errors.CategoryConflict).
			Context("operation", op).
			Context("page", page).
			Build()
	}
	s.cancel = nil

	if err != nil {
		s.metrics.RecordSessionOperation(op, "error")
		return nil, err
	}

	s.active = &f
	s.page = page
	s.total = fetched.TotalEntries
	s.results = observation.Rank(fetched.Observations, q.Origin)
	s.metrics.RecordSessionOperation(op, "success")

	return s.resultLocked(), nil
}

func (s *Session) resultLocked() *Result {
	observations := make([]observation.Observation, len(s.results))
	for i := range s.results {
		observations[i] = s.results[i].Clone()
	}
	return &Result{
		Observations:    observations,
		TotalMatchCount: s.total,
		CurrentPage:     s.page,
		TotalPages:      inaturalist.TotalPages(s.total),
		PageSize:        inaturalist.PerPage,
		Filter:          s.active.clone(),
	}
}
