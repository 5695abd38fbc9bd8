// Package session owns the conversation lifecycle. The Manager wraps a
// pluggable store and serializes every read-modify-write on the same
// session id behind a per-session mutex, so the append-only message and
// resolution logs never interleave. Different sessions never contend.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/quickplate/support-core-go/internal/domain"
	"github.com/quickplate/support-core-go/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager is the session state machine front door. All session access
// in the service goes through it.
type Manager struct {
	store  port.SessionStore
	locks  *keyedMutex
	logger *zap.Logger
}

// NewManager creates a Manager over the given store.
func NewManager(store port.SessionStore, logger *zap.Logger) *Manager {
	return &Manager{
		store:  store,
		locks:  newKeyedMutex(),
		logger: logger,
	}
}

// Start creates a new active session and persists it.
func (m *Manager) Start(ctx context.Context, customer domain.CustomerInfo, orders []domain.OrderDetails, now time.Time) (*domain.Session, error) {
	orderIDs := make([]string, 0, len(orders))
	for _, o := range orders {
		orderIDs = append(orderIDs, o.ID)
	}

	s := &domain.Session{
		ID:             uuid.NewString(),
		CustomerID:     customer.ID,
		Customer:       customer,
		OrderIDs:       orderIDs,
		Orders:         orders,
		Status:         domain.SessionActive,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	unlock := m.locks.lock(sessionID)
	defer unlock()

	return m.store.Load(ctx, sessionID)
}

// Update loads the session, applies fn under the per-session lock and
// saves the result. fn returning an error aborts without saving.
// Ended sessions are rejected before fn runs.
func (m *Manager) Update(ctx context.Context, sessionID string, fn func(*domain.Session) error) (*domain.Session, error) {
	unlock := m.locks.lock(sessionID)
	defer unlock()

	s, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Ended() {
		return nil, &domain.ErrSessionEnded{SessionID: sessionID}
	}

	if err := fn(s); err != nil {
		return nil, err
	}

	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Escalate flips the session's escalated flag. Idempotent.
func (m *Manager) Escalate(ctx context.Context, sessionID string) (*domain.Session, error) {
	return m.Update(ctx, sessionID, func(s *domain.Session) error {
		return s.Escalate()
	})
}

// End moves the session to its terminal state, persists the final
// snapshot and evicts the live entry. After End the session id is gone:
// further operations fail with NotFound.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	unlock := m.locks.lock(sessionID)
	defer unlock()

	s, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return err
	}

	s.End()
	if err := m.store.Save(ctx, s); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, sessionID); err != nil {
		m.logger.Warn("session eviction failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
	return nil
}

// ============================================================
// keyedMutex — refcounted per-key locks
// ============================================================

// keyedMutex hands out one mutex per key and frees it when the last
// holder releases, so the lock table doesn't grow with session churn.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*lockEntry)}
}

// lock acquires the mutex for key and returns its release func.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
