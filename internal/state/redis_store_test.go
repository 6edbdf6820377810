package state

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return store, s
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.Set(ctx, KeyUnlockedScenario, "4"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, KeyUnlockedScenario)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "4" {
		t.Errorf("expected 4, got %q", got)
	}
}

func TestRedisStoreMissingKey(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStoreDelete(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	key := AssignmentFormKey("asg-1")
	if err := store.Set(ctx, key, `{"notes":"draft"}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRedisStoreKeysArePrefixed(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	if err := store.Set(context.Background(), "identity_email", "rey@example.com"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !s.Exists("console:identity_email") {
		t.Fatalf("expected console: prefix on redis keys, have %v", s.Keys())
	}
}
