package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sentinelstack/apigateway/internal/domain/quota"
	"github.com/sentinelstack/apigateway/internal/ierr"
	"github.com/sentinelstack/apigateway/internal/storage/memstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRateLimitService(t *testing.T) (*RateLimitService, *memstorage.QuotaPolicyStore, *memstorage.CounterStore, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	policies := memstorage.NewQuotaPolicyStore()
	counter := memstorage.NewCounterStore(clock.Now)
	svc := NewRateLimitService(policies, counter, zap.NewNop())
	return svc, policies, counter, clock
}

func intPtr(v int) *int { return &v }

func TestResolve_DefaultFallback(t *testing.T) {
	svc, _, _, _ := newTestRateLimitService(t)

	policy, err := svc.Resolve(context.Background(), 7)
	require.NoError(t, err)

	require.NotNil(t, policy.PerMinute)
	require.NotNil(t, policy.PerHour)
	require.NotNil(t, policy.PerDay)
	assert.Equal(t, quota.DefaultPerMinute, *policy.PerMinute)
	assert.Equal(t, quota.DefaultPerHour, *policy.PerHour)
	assert.Equal(t, quota.DefaultPerDay, *policy.PerDay)
	assert.Equal(t, int64(7), policy.OwnerID)
}

func TestResolve_DoesNotPersistDefault(t *testing.T) {
	svc, policies, _, _ := newTestRateLimitService(t)

	_, err := svc.Resolve(context.Background(), 7)
	require.NoError(t, err)

	_, err = policies.FindByOwner(context.Background(), 7)
	assert.ErrorIs(t, err, ierr.ErrNotFound)
}

func TestSavePolicy(t *testing.T) {
	svc, _, _, _ := newTestRateLimitService(t)

	saved, err := svc.SavePolicy(context.Background(), &quota.Policy{
		OwnerID:   7,
		PerMinute: intPtr(10),
		PerHour:   intPtr(200),
	})
	require.NoError(t, err)
	assert.Equal(t, 10, *saved.PerMinute)
	assert.Nil(t, saved.PerDay)
	assert.False(t, saved.UpdatedAt.IsZero())

	resolved, err := svc.Resolve(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 10, *resolved.PerMinute)
}

func TestSavePolicy_RejectsNonPositiveLimits(t *testing.T) {
	svc, _, _, _ := newTestRateLimitService(t)

	_, err := svc.SavePolicy(context.Background(), &quota.Policy{
		OwnerID:   7,
		PerMinute: intPtr(0),
	})
	assert.ErrorIs(t, err, ierr.ErrValidation)
}

func TestIsExceeded_ShortCircuitLeavesCoarserWindowsUntouched(t *testing.T) {
	svc, _, counter, _ := newTestRateLimitService(t)

	_, err := svc.SavePolicy(context.Background(), &quota.Policy{
		OwnerID:   7,
		PerMinute: intPtr(2),
		PerHour:   intPtr(100),
		PerDay:    intPtr(1000),
	})
	require.NoError(t, err)

	assert.False(t, svc.IsExceeded(context.Background(), 7))
	assert.False(t, svc.IsExceeded(context.Background(), 7))
	assert.True(t, svc.IsExceeded(context.Background(), 7))

	// The rejected third call incremented the minute window only.
	assert.Equal(t, int64(3), counter.Value(7, quota.WindowMinute))
	assert.Equal(t, int64(2), counter.Value(7, quota.WindowHour))
	assert.Equal(t, int64(2), counter.Value(7, quota.WindowDay))
}

func TestIsExceeded_FixedWindowReset(t *testing.T) {
	svc, _, _, clock := newTestRateLimitService(t)

	_, err := svc.SavePolicy(context.Background(), &quota.Policy{
		OwnerID:   7,
		PerMinute: intPtr(1),
	})
	require.NoError(t, err)

	assert.False(t, svc.IsExceeded(context.Background(), 7))
	assert.True(t, svc.IsExceeded(context.Background(), 7))

	clock.Advance(61 * time.Second)

	assert.False(t, svc.IsExceeded(context.Background(), 7))
}

func TestIsExceeded_SkipsUnconfiguredWindows(t *testing.T) {
	svc, _, counter, _ := newTestRateLimitService(t)

	_, err := svc.SavePolicy(context.Background(), &quota.Policy{
		OwnerID: 7,
		PerHour: intPtr(100),
	})
	require.NoError(t, err)

	assert.False(t, svc.IsExceeded(context.Background(), 7))
	assert.Equal(t, int64(0), counter.Value(7, quota.WindowMinute))
	assert.Equal(t, int64(1), counter.Value(7, quota.WindowHour))
	assert.Equal(t, int64(0), counter.Value(7, quota.WindowDay))
}

type failingCounter struct{}

func (failingCounter) Increment(ctx context.Context, ownerID int64, window quota.Window) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestIsExceeded_FailsOpenWhenCounterStoreDown(t *testing.T) {
	svc := NewRateLimitService(memstorage.NewQuotaPolicyStore(), failingCounter{}, zap.NewNop())

	assert.False(t, svc.IsExceeded(context.Background(), 7))
}

func TestIsExceeded_IsolatesCallers(t *testing.T) {
	svc, _, _, _ := newTestRateLimitService(t)

	_, err := svc.SavePolicy(context.Background(), &quota.Policy{
		OwnerID:   1,
		PerMinute: intPtr(1),
	})
	require.NoError(t, err)

	assert.False(t, svc.IsExceeded(context.Background(), 1))
	assert.True(t, svc.IsExceeded(context.Background(), 1))

	// A different caller is unaffected by caller 1's exhaustion.
	assert.False(t, svc.IsExceeded(context.Background(), 2))
}
