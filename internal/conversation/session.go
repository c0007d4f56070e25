// internal/conversation/session.go
package conversation

import (
	"sync"
)

// Session is the transient per-user intake state. It lives only in memory;
// losing it on restart just means the user runs /start again.
type Session struct {
	GymID               string
	Step                Step
	Age                 int
	Height              float64
	Weight              float64
	Gender              string
	Goal                string
	DietaryRestrictions string
	PreferredFoods      string
}

// Store owns all sessions, keyed by telegram user id. The machine is its only
// writer for a given user.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Session),
	}
}

func (s *Store) Get(userID int64) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// Begin replaces any existing session with a fresh one positioned at the
// first question.
func (s *Store) Begin(userID int64, gymID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &Session{GymID: gymID, Step: StepAge}
	s.sessions[userID] = sess
	return sess
}

func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
