package intent

import (
	"sync"
	"time"

	"github.com/ShayCichocki/steward/pkg/models"
)

// Pending is a deferred action waiting for the user to confirm or cancel.
type Pending struct {
	Question  string
	Action    models.Action
	Run       func() (*models.Action, error)
	CreatedAt time.Time
}

// Session holds the one outstanding clarification for a conversation.
type Session struct {
	mu      sync.Mutex
	pending *Pending
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{}
}

// SetPending replaces any outstanding clarification.
func (s *Session) SetPending(p *Pending) {
	s.mu.Lock()
	s.pending = p
	s.mu.Unlock()
}

// Take removes and returns the outstanding clarification, if any.
func (s *Session) Take() *Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pending
	s.pending = nil
	return p
}

// HasPending reports whether a clarification is outstanding.
func (s *Session) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Question returns the outstanding clarification's question.
func (s *Session) Question() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return ""
	}
	return s.pending.Question
}
