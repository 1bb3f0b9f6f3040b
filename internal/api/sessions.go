package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/gingerhendrix/my-nat/internal/errors"
	"github.com/gingerhendrix/my-nat/internal/observability/metrics"
	"github.com/gingerhendrix/my-nat/internal/search"
)

// SessionFactory creates an idle search session.
type SessionFactory func() *search.Session

// SessionStore keeps search sessions keyed by a random ID. Sessions expire
// after ttl without access; expired or deleted sessions are reset so any
// request still in flight is cancelled.
type SessionStore struct {
	sessions *cache.Cache
	ttl      time.Duration
	metrics  *metrics.SearchMetrics
}

// NewSessionStore creates a store that expires sessions idle for ttl.
func NewSessionStore(ttl time.Duration, m *metrics.SearchMetrics) *SessionStore {
	s := &SessionStore{
		sessions: cache.New(ttl, ttl/2),
		ttl:      ttl,
		metrics:  m,
	}
	s.sessions.OnEvicted(func(_ string, v any) {
		if session, ok := v.(*search.Session); ok {
			session.Reset()
		}
		s.metrics.SetActiveSessions(s.sessions.ItemCount())
	})
	return s
}

// Add stores session and returns its new ID.
func (s *SessionStore) Add(session *search.Session) string {
	id := uuid.NewString()
	s.sessions.Set(id, session, s.ttl)
	s.metrics.SetActiveSessions(s.sessions.ItemCount())
	return id
}

// ErrSessionNotFound is returned for IDs that were never issued, were deleted
// or have expired.
var ErrSessionNotFound = errors.NewStd("session not found")

func sessionNotFound(id string) error {
	return errors.New(ErrSessionNotFound).
		Component("api").
		Category(errors.CategoryNotFound).
		Context("session_id", id).
		Build()
}

// Get returns the session for id and extends its expiry.
func (s *SessionStore) Get(id string) (*search.Session, error) {
	v, found := s.sessions.Get(id)
	if !found {
		return nil, sessionNotFound(id)
	}
	session, ok := v.(*search.Session)
	if !ok {
		return nil, sessionNotFound(id)
	}
	s.sessions.Set(id, session, s.ttl)
	return session, nil
}

// Delete removes the session for id.
func (s *SessionStore) Delete(id string) error {
	if _, found := s.sessions.Get(id); !found {
		return sessionNotFound(id)
	}
	// go-cache calls OnEvicted for Delete, which resets the session
	s.sessions.Delete(id)
	return nil
}

// Len returns the number of stored sessions, including expired ones not yet purged.
func (s *SessionStore) Len() int {
	return s.sessions.ItemCount()
}

// Flush removes all sessions.
func (s *SessionStore) Flush() {
	for id := range s.sessions.Items() {
		s.sessions.Delete(id)
	}
}
