package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestRevoke_and_IsRevoked(t *testing.T) {
	store := NewRevocationStore(time.Hour)
	defer store.Close()
	ctx := context.Background()

	jti := "token-abc-123"
	store.Revoke(ctx, jti, time.Now().Add(1*time.Hour))

	if !store.IsRevoked(jti) {
		t.Errorf("expected JTI %q to be revoked", jti)
	}
	if store.IsRevoked("unknown-jti") {
		t.Error("expected unknown JTI to not be revoked")
	}
}

func TestRevoke_IgnoresEmptyJTI(t *testing.T) {
	store := NewRevocationStore(time.Hour)
	defer store.Close()
	ctx := context.Background()

	store.Revoke(ctx, "", time.Now().Add(time.Hour))
	if store.Count() != 0 {
		t.Errorf("expected empty jti to be ignored, count = %d", store.Count())
	}
}

func TestCleanup_RemovesExpiredEntries(t *testing.T) {
	store := NewRevocationStore(time.Hour)
	defer store.Close()
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Revoke(ctx, "expired", now.Add(-time.Minute))
	store.Revoke(ctx, "live", now.Add(time.Minute))

	store.cleanup()

	if store.IsRevoked("expired") {
		t.Error("expected expired entry to be cleaned up")
	}
	if !store.IsRevoked("live") {
		t.Error("expected live entry to remain")
	}
	if store.Count() != 1 {
		t.Errorf("expected count 1, got %d", store.Count())
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewRevocationStore(time.Hour)
	defer store.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			jti := fmt.Sprintf("jti-%d", n)
			store.Revoke(ctx, jti, time.Now().Add(time.Hour))
			store.IsRevoked(jti)
			store.Count()
		}(i)
	}
	wg.Wait()

	if store.Count() != 50 {
		t.Errorf("expected 50 entries, got %d", store.Count())
	}
}

func TestClose_Idempotent(t *testing.T) {
	store := NewRevocationStore(10 * time.Millisecond)
	store.Close()
	store.Close()
}

type memoryBackend struct {
	mu      sync.Mutex
	rows    map[string]time.Time
	failErr error
	purged  int
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{rows: make(map[string]time.Time)}
}

func (b *memoryBackend) SaveRevocation(_ context.Context, jti string, expiresAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return b.failErr
	}
	b.rows[jti] = expiresAt
	return nil
}

func (b *memoryBackend) ActiveRevocations(_ context.Context, now time.Time) (map[string]time.Time, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return nil, b.failErr
	}
	out := make(map[string]time.Time)
	for jti, exp := range b.rows {
		if exp.After(now) {
			out[jti] = exp
		}
	}
	return out, nil
}

func (b *memoryBackend) PurgeRevocations(_ context.Context, now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return b.failErr
	}
	for jti, exp := range b.rows {
		if !exp.After(now) {
			delete(b.rows, jti)
			b.purged++
		}
	}
	return nil
}

func TestPersistentStore_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	backend := newMemoryBackend()

	first, err := NewPersistentRevocationStore(ctx, backend, time.Hour, nil)
	if err != nil {
		t.Fatalf("NewPersistentRevocationStore() error: %v", err)
	}
	if err := first.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke() error: %v", err)
	}
	first.Close()

	second, err := NewPersistentRevocationStore(ctx, backend, time.Hour, nil)
	if err != nil {
		t.Fatalf("NewPersistentRevocationStore() error: %v", err)
	}
	defer second.Close()
	if !second.IsRevoked("jti-1") {
		t.Error("expected revocation to be loaded from the backend")
	}
}

func TestPersistentStore_SyncPicksUpOtherInstances(t *testing.T) {
	ctx := context.Background()
	backend := newMemoryBackend()
	backend.rows["stale"] = time.Now().Add(-time.Minute)

	a, err := NewPersistentRevocationStore(ctx, backend, time.Hour, nil)
	if err != nil {
		t.Fatalf("NewPersistentRevocationStore() error: %v", err)
	}
	defer a.Close()
	b, err := NewPersistentRevocationStore(ctx, backend, time.Hour, nil)
	if err != nil {
		t.Fatalf("NewPersistentRevocationStore() error: %v", err)
	}
	defer b.Close()

	if a.IsRevoked("stale") || backend.purged != 1 {
		t.Errorf("expected expired row purged and not loaded, purged=%d", backend.purged)
	}
	if err := a.Revoke(ctx, "jti-a", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke() error: %v", err)
	}
	if b.IsRevoked("jti-a") {
		t.Fatal("expected revocation to be unseen before sync")
	}
	if err := b.sync(ctx); err != nil {
		t.Fatalf("sync() error: %v", err)
	}
	if !b.IsRevoked("jti-a") {
		t.Error("expected revocation from another instance after sync")
	}
}

func TestPersistentStore_BackendErrors(t *testing.T) {
	ctx := context.Background()
	backend := newMemoryBackend()
	backend.failErr = errors.New("connection refused")

	if _, err := NewPersistentRevocationStore(ctx, backend, time.Hour, nil); !errors.Is(err, backend.failErr) {
		t.Errorf("expected load error, got %v", err)
	}

	backend.failErr = nil
	store, err := NewPersistentRevocationStore(ctx, backend, time.Hour, nil)
	if err != nil {
		t.Fatalf("NewPersistentRevocationStore() error: %v", err)
	}
	defer store.Close()

	backend.failErr = errors.New("connection refused")
	if err := store.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)); !errors.Is(err, backend.failErr) {
		t.Errorf("expected persist error, got %v", err)
	}
	if !store.IsRevoked("jti-1") {
		t.Error("expected in-memory revocation to hold when persisting fails")
	}
}
