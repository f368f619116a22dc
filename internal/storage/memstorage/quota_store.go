package memstorage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sentinelstack/apigateway/internal/domain/quota"
	"github.com/sentinelstack/apigateway/internal/ierr"
)

// QuotaPolicyStore is an in-memory quota.PolicyStore for tests.
type QuotaPolicyStore struct {
	mu       sync.RWMutex
	policies map[int64]*quota.Policy
}

func NewQuotaPolicyStore() *QuotaPolicyStore {
	return &QuotaPolicyStore{
		policies: make(map[int64]*quota.Policy),
	}
}

var _ quota.PolicyStore = (*QuotaPolicyStore)(nil)

func (s *QuotaPolicyStore) FindByOwner(ctx context.Context, ownerID int64) (*quota.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policy, ok := s.policies[ownerID]
	if !ok {
		return nil, fmt.Errorf("%w: no quota policy for owner %d", ierr.ErrNotFound, ownerID)
	}
	policyCopy := *policy
	return &policyCopy, nil
}

func (s *QuotaPolicyStore) Save(ctx context.Context, policy *quota.Policy) (*quota.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stored := *policy
	if existing, ok := s.policies[policy.OwnerID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.policies[policy.OwnerID] = &stored

	savedCopy := stored
	return &savedCopy, nil
}

// CounterStore is an in-memory quota.Counter with an injectable clock.
// It mirrors the Redis contract: TTL set once at entry creation, entries
// vanishing after expiry. Single-process only, so it backs tests, never
// production.
type CounterStore struct {
	mu      sync.Mutex
	entries map[string]*counterEntry
	now     func() time.Time
}

type counterEntry struct {
	count     int64
	expiresAt time.Time
}

func NewCounterStore(now func() time.Time) *CounterStore {
	if now == nil {
		now = time.Now
	}
	return &CounterStore{
		entries: make(map[string]*counterEntry),
		now:     now,
	}
}

var _ quota.Counter = (*CounterStore)(nil)

func (s *CounterStore) Increment(ctx context.Context, ownerID int64, window quota.Window) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprintf("rate_limit:%d::%s", ownerID, window)
	now := s.now()

	entry, ok := s.entries[key]
	if !ok || !entry.expiresAt.After(now) {
		entry = &counterEntry{expiresAt: now.Add(window.Duration())}
		s.entries[key] = entry
	}
	entry.count++
	return entry.count, nil
}

// Value returns the current count for a (caller, window) pair without
// incrementing. Zero when the entry is missing or expired.
func (s *CounterStore) Value(ownerID int64, window quota.Window) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprintf("rate_limit:%d::%s", ownerID, window)
	entry, ok := s.entries[key]
	if !ok || !entry.expiresAt.After(s.now()) {
		return 0
	}
	return entry.count
}
