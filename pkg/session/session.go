// Package session holds per-user conversation state for the lifetime of a UI
// session. Nothing here survives a process restart.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/papercomputeco/parley/pkg/llm"
)

// ErrBusy is returned when a submission arrives while a turn is in flight.
var ErrBusy = errors.New("a message is already being processed")

// State is the turn state of a session.
type State int

const (
	// Idle sessions are waiting for a submission.
	Idle State = iota

	// Processing sessions have a submission in flight.
	Processing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Processing:
		return "processing"
	}
	return "unknown"
}

// Session is one user's conversation plus its turn state.
type Session struct {
	ID string

	mu           sync.Mutex
	conv         *llm.Conversation
	systemPrompt string
	state        State
	lastActive   time.Time
}

// New creates an idle session whose conversation is seeded with systemPrompt.
func New(id, systemPrompt string) *Session {
	return &Session{
		ID:           id,
		conv:         llm.NewConversation(systemPrompt),
		systemPrompt: systemPrompt,
		lastActive:   time.Now(),
	}
}

// Begin moves the session from Idle to Processing.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Processing {
		return ErrBusy
	}
	s.state = Processing
	return nil
}

// End moves the session back to Idle.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Idle
}

// State returns the current turn state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Conversation returns the live conversation. Only the holder of the current
// turn (between Begin and End) may read it without going through History.
func (s *Session) Conversation() *llm.Conversation {
	return s.conv
}

// Append adds a turn to the conversation.
func (s *Session) Append(role llm.Role, content string) llm.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conv.Append(role, content)
}

// Rollback drops every turn after the first n.
func (s *Session) Rollback(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conv.Truncate(n)
}

// Len returns the number of turns, system turn included.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conv.Len()
}

// History returns the turns the user may see.
func (s *Session) History() []llm.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conv.Visible()
}

// Reset clears the history, keeping the system prompt. It fails with ErrBusy
// while a turn is in flight.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Processing {
		return ErrBusy
	}
	s.conv = llm.NewConversation(s.systemPrompt)
	return nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return ttl > 0 && s.state == Idle && now.Sub(s.lastActive) > ttl
}
