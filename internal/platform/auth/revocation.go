package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultCleanupInterval = 5 * time.Minute

// RevocationBackend persists revocations so that they survive restarts and
// are shared between server instances.
type RevocationBackend interface {
	SaveRevocation(ctx context.Context, jti string, expiresAt time.Time) error
	// ActiveRevocations returns every revocation whose token expires after now.
	ActiveRevocations(ctx context.Context, now time.Time) (map[string]time.Time, error)
	PurgeRevocations(ctx context.Context, now time.Time) error
}

// RevocationStore tracks logged-out token ids (the JWT "jti" claim) until
// the token would have expired on its own. Safe for concurrent use.
//
// With a backend, lookups are still served from memory; the set is loaded
// at start and refreshed on every cleanup tick, so a revocation made by
// another instance takes effect within one interval.
type RevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time // jti -> token expiry
	backend RevocationBackend
	now     func() time.Time
	onError func(error)
	done    chan struct{}
	once    sync.Once
}

// NewRevocationStore creates an in-memory store and starts a goroutine that
// drops expired entries every cleanupInterval. A non-positive interval uses
// five minutes. Call Close to stop the goroutine.
func NewRevocationStore(cleanupInterval time.Duration) *RevocationStore {
	s := newRevocationStore(nil)
	go s.cleanupLoop(intervalOrDefault(cleanupInterval))
	return s
}

// NewPersistentRevocationStore creates a store backed by b, loads the
// revocations that are still live and refreshes them every syncInterval.
// onError receives failures of the background refresh and may be nil.
func NewPersistentRevocationStore(ctx context.Context, b RevocationBackend, syncInterval time.Duration, onError func(error)) (*RevocationStore, error) {
	s := newRevocationStore(b)
	s.onError = onError
	if err := s.sync(ctx); err != nil {
		return nil, err
	}
	go s.cleanupLoop(intervalOrDefault(syncInterval))
	return s, nil
}

func newRevocationStore(b RevocationBackend) *RevocationStore {
	return &RevocationStore{
		entries: make(map[string]time.Time),
		backend: b,
		now:     time.Now,
		done:    make(chan struct{}),
	}
}

func intervalOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultCleanupInterval
	}
	return d
}

// Revoke marks jti as revoked until expiresAt and, with a backend, persists
// the revocation. The in-memory entry is kept even if persisting fails.
func (s *RevocationStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	s.mu.Lock()
	s.entries[jti] = expiresAt
	s.mu.Unlock()

	if s.backend == nil {
		return nil
	}
	if err := s.backend.SaveRevocation(ctx, jti, expiresAt); err != nil {
		return fmt.Errorf("persist revocation: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti has been revoked.
func (s *RevocationStore) IsRevoked(jti string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[jti]
	return ok
}

// Count returns the number of tracked revocations.
func (s *RevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (s *RevocationStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *RevocationStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanup()
			if s.backend == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			if err := s.sync(ctx); err != nil && s.onError != nil {
				s.onError(err)
			}
			cancel()
		}
	}
}

// cleanup removes entries whose tokens have expired.
func (s *RevocationStore) cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for jti, exp := range s.entries {
		if now.After(exp) {
			delete(s.entries, jti)
		}
	}
}

// sync purges expired rows from the backend and merges the live ones into
// memory.
func (s *RevocationStore) sync(ctx context.Context) error {
	now := s.now()
	if err := s.backend.PurgeRevocations(ctx, now); err != nil {
		return fmt.Errorf("purge revocations: %w", err)
	}
	active, err := s.backend.ActiveRevocations(ctx, now)
	if err != nil {
		return fmt.Errorf("load revocations: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for jti, exp := range active {
		s.entries[jti] = exp
	}
	return nil
}
