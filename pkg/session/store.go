package session

import (
	"sync"
	"time"
)

// Store keeps sessions in memory keyed by id. Sessions idle for longer than
// the TTL are dropped; a zero TTL keeps them until Delete.
type Store struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	systemPrompt string
	ttl          time.Duration
	now          func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a Store whose sessions start with systemPrompt.
func NewStore(systemPrompt string, ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		sessions:     make(map[string]*Session),
		systemPrompt: systemPrompt,
		ttl:          ttl,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the session for id, creating it if it does not exist or has
// expired.
func (s *Store) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if sess, ok := s.sessions[id]; ok && !sess.expired(now, s.ttl) {
		sess.touch(now)
		return sess
	}

	sess := New(id, s.systemPrompt)
	sess.touch(now)
	s.sessions[id] = sess
	return sess
}

// Delete removes the session for id.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
}

// Sweep drops expired sessions and returns how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, sess := range s.sessions {
		if sess.expired(now, s.ttl) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}
