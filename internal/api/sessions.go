package api

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kevsosmooth/ip-live/internal/metrics"
)

// Session is created every time a player fetches the playlist.
type Session struct {
	Token    string
	Username string
	IP       string
	Created  time.Time
}

type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

func newSessionStore(ttl time.Duration, now func() time.Time) *sessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &sessionStore{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      now,
	}
}

// create registers a new session and evicts the expired ones.
func (s *sessionStore) create(username, ip string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()

	session := Session{
		Token:    uuid.New().String(),
		Username: username,
		IP:       ip,
		Created:  s.now(),
	}
	s.sessions[session.Token] = session
	metrics.ActiveSessions.Set(float64(len(s.sessions)))

	return session
}

// get returns the session for token if it has not expired.
func (s *sessionStore) get(token string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok || s.now().Sub(session.Created) > s.ttl {
		return Session{}, false
	}
	return session, true
}

func (s *sessionStore) evict() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
}

func (s *sessionStore) evictLocked() {
	now := s.now()
	for token, session := range s.sessions {
		if now.Sub(session.Created) > s.ttl {
			delete(s.sessions, token)
		}
	}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
}

func (s *sessionStore) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *sessionStore) countFor(username string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, session := range s.sessions {
		if session.Username == username {
			count++
		}
	}
	return count
}
