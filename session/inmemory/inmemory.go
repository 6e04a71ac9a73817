// Package inmemory is the single-process session store used in development
// and tests.
package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/shopchat/session"
)

type entry struct {
	questions []string
	expiresAt time.Time
}

type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*entry
}

func New(ttl time.Duration) session.Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{ttl: ttl, sessions: map[string]*entry{}}
}

func (s *Store) Ensure(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(time.Now())
	if id != "" {
		if e, ok := s.sessions[id]; ok {
			e.expiresAt = time.Now().Add(s.ttl)
			return id, nil
		}
	}
	id = uuid.NewString()
	s.sessions[id] = &entry{expiresAt: time.Now().Add(s.ttl)}
	return id, nil
}

func (s *Store) AppendQuestion(ctx context.Context, id, question string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(time.Now())
	e, ok := s.sessions[id]
	if !ok {
		e = &entry{}
		s.sessions[id] = e
	}
	e.questions = append(e.questions, question)
	e.expiresAt = time.Now().Add(s.ttl)
	return nil
}

// sweepLocked drops expired sessions so the map cannot grow without bound in
// a long-lived process. Callers hold s.mu.
func (s *Store) sweepLocked(now time.Time) {
	for id, e := range s.sessions {
		if now.After(e.expiresAt) {
			delete(s.sessions, id)
		}
	}
}

func (s *Store) Questions(ctx context.Context, id string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, nil
	}
	questions := e.questions
	if limit > 0 && len(questions) > limit {
		questions = questions[len(questions)-limit:]
	}
	out := make([]string, len(questions))
	copy(out, questions)
	return out, nil
}
