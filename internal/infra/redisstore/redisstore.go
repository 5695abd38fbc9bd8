// Package redisstore is the Redis-backed session store, for deployments
// where sessions must survive a restart or be shared across instances.
// Sessions are stored as JSON under session:{id}; ended sessions are
// moved to an archive key and kept for the configured retention.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quickplate/support-core-go/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	liveKeyPrefix    = "session:"
	archiveKeyPrefix = "session:ended:"
)

// Store persists sessions in Redis.
type Store struct {
	rdb       *redis.Client
	ttl       time.Duration
	retention time.Duration
}

// New creates a Store on the given client. ttl bounds idle live
// sessions; ended sessions are retained read-only for 7 days.
func New(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{
		rdb:       rdb,
		ttl:       ttl,
		retention: 7 * 24 * time.Hour,
	}
}

// Load returns the live session, or ErrNotFound.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	data, err := s.rdb.Get(ctx, liveKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &domain.ErrNotFound{Resource: "session", ID: sessionID}
	}
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "redis", Err: err}
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &sess, nil
}

// Save writes the session JSON with the idle TTL.
func (s *Store) Save(ctx context.Context, sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	if err := s.rdb.Set(ctx, liveKeyPrefix+sess.ID, data, s.ttl).Err(); err != nil {
		return &domain.ErrExternalService{Service: "redis", Err: err}
	}
	return nil
}

// Delete evicts the live entry. The last saved snapshot (the ended
// session) is moved to the archive key so the audit trail survives.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	live := liveKeyPrefix + sessionID
	archived := archiveKeyPrefix + sessionID

	if err := s.rdb.Rename(ctx, live, archived).Err(); err != nil {
		// RENAME fails when the live key is gone (session never saved
		// or already archived); deleting twice is fine.
		if n, existsErr := s.rdb.Exists(ctx, live).Result(); existsErr == nil && n == 0 {
			return nil
		}
		return &domain.ErrExternalService{Service: "redis", Err: err}
	}
	if err := s.rdb.Expire(ctx, archived, s.retention).Err(); err != nil {
		return &domain.ErrExternalService{Service: "redis", Err: err}
	}
	return nil
}

// Ping checks connectivity; used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
