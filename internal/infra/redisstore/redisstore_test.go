package redisstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quickplate/support-core-go/internal/domain"
	"github.com/quickplate/support-core-go/internal/infra/redisstore"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStore(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return redisstore.New(rdb, time.Hour), mr
}

func testSession() *domain.Session {
	return &domain.Session{
		ID:         "sess-1",
		CustomerID: "cust-1",
		Status:     domain.SessionActive,
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "my order is missing an item", Timestamp: time.Now().UTC()},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testSession()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := store.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.CustomerID != "cust-1" {
		t.Errorf("expected customer cust-1, got %q", loaded.CustomerID)
	}
	if len(loaded.Messages) != 1 || loaded.Messages[0].Content != "my order is missing an item" {
		t.Errorf("messages did not survive the round trip: %+v", loaded.Messages)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.Load(context.Background(), "nope")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_DeleteArchivesSession(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testSession()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := store.Load(ctx, "sess-1")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if !mr.Exists("session:ended:sess-1") {
		t.Error("expected ended session to be archived")
	}
}

func TestStore_DeleteUnknownIsNoOp(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	if err := store.Delete(ctx, "never-saved"); err != nil {
		t.Fatalf("expected no-op delete, got %v", err)
	}

	// A second delete of an archived session is also fine.
	if err := store.Save(ctx, testSession()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("expected repeated delete to be a no-op, got %v", err)
	}
}

func TestStore_Ping(t *testing.T) {
	store, _ := newStore(t)

	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
