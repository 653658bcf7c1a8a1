package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SIMPLIKARG/TESTING/internal/domain"
	"github.com/SIMPLIKARG/TESTING/internal/repositories"
)

// SessionStore keeps one session per user in memory. Sessions idle for longer than
// the TTL read as fresh ones; a zero TTL disables expiry.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]domain.Session
	ttl      time.Duration
	clock    func() time.Time
}

var _ repositories.SessionRepository = (*SessionStore)(nil)

// SessionStoreOption customises the store.
type SessionStoreOption func(*SessionStore)

// WithSessionClock injects a clock primarily for tests.
func WithSessionClock(clock func() time.Time) SessionStoreOption {
	return func(s *SessionStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewSessionStore constructs an empty session store.
func NewSessionStore(ttl time.Duration, opts ...SessionStoreOption) *SessionStore {
	store := &SessionStore{
		sessions: make(map[int64]domain.Session),
		ttl:      ttl,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Get returns a copy of the user's session, or a new idle session.
func (s *SessionStore) Get(_ context.Context, userID int64) (domain.Session, error) {
	if userID == 0 {
		return domain.Session{}, errors.New("session store: user id is required")
	}
	now := s.clock().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok || s.expired(session, now) {
		delete(s.sessions, userID)
		return domain.NewSession(userID, now), nil
	}
	return session.Clone(), nil
}

// Set stores a copy of session. Concurrent writers for the same user are last-write-wins.
func (s *SessionStore) Set(_ context.Context, session domain.Session) error {
	if session.UserID == 0 {
		return errors.New("session store: user id is required")
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = s.clock().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserID] = session.Clone()
	return nil
}

// Delete forgets the user's session.
func (s *SessionStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

// CleanupExpired removes up to limit expired sessions; limit <= 0 removes all.
func (s *SessionStore) CleanupExpired(_ context.Context, now time.Time, limit int) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	now = now.UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.sessions) {
		limit = len(s.sessions)
	}
	removed := 0
	for id, session := range s.sessions {
		if removed >= limit {
			break
		}
		if !s.expired(session, now) {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	return removed, nil
}

// Len reports the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) expired(session domain.Session, now time.Time) bool {
	return s.ttl > 0 && !now.Before(session.UpdatedAt.Add(s.ttl))
}
