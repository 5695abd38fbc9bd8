// Package memstore is the in-memory session store. Sessions live only
// as long as the process; ended sessions are evicted. Suitable for
// single-instance deployments and tests.
package memstore

import (
	"context"
	"sync"

	"github.com/quickplate/support-core-go/internal/domain"
)

// Store keeps session snapshots in a map. Load and Save copy the
// session so callers never share slices with the stored value.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// New creates an empty Store.
func New() *Store {
	return &Store{sessions: make(map[string]*domain.Session)}
}

// Load returns a copy of the session, or ErrNotFound.
func (s *Store) Load(_ context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.sessions[sessionID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "session", ID: sessionID}
	}
	return clone(stored), nil
}

// Save stores a copy of the session.
func (s *Store) Save(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = clone(sess)
	return nil
}

// Delete evicts the session. Deleting an unknown id is a no-op.
func (s *Store) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// Len reports how many live sessions are held. Used by readiness checks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func clone(s *domain.Session) *domain.Session {
	c := *s
	c.OrderIDs = append([]string(nil), s.OrderIDs...)
	c.Orders = append([]domain.OrderDetails(nil), s.Orders...)
	c.Messages = append([]domain.Message(nil), s.Messages...)
	c.Resolutions = append([]domain.Resolution(nil), s.Resolutions...)
	for i := range c.Orders {
		c.Orders[i].Items = append([]domain.OrderItem(nil), s.Orders[i].Items...)
	}
	return &c
}
