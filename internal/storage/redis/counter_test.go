package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sentinelstack/apigateway/internal/domain/quota"
	"github.com/sentinelstack/apigateway/internal/ierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCounter(t *testing.T) (*WindowCounter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewWindowCounter(client, time.Second), mr
}

func TestIncrement_SetsTTLOnFirstIncrementOnly(t *testing.T) {
	counter, mr := newTestCounter(t)

	count, err := counter.Increment(context.Background(), 42, quota.WindowMinute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, time.Minute, mr.TTL("rate_limit:42::minute"))

	// Burn half the window, then increment again: the TTL must keep
	// counting down rather than being re-armed.
	mr.FastForward(30 * time.Second)

	count, err = counter.Increment(context.Background(), 42, quota.WindowMinute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 30*time.Second, mr.TTL("rate_limit:42::minute"))
}

func TestIncrement_WindowRestartsAfterExpiry(t *testing.T) {
	counter, mr := newTestCounter(t)

	for i := int64(1); i <= 3; i++ {
		count, err := counter.Increment(context.Background(), 42, quota.WindowMinute)
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	mr.FastForward(61 * time.Second)

	count, err := counter.Increment(context.Background(), 42, quota.WindowMinute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIncrement_WindowsAndCallersAreIndependent(t *testing.T) {
	counter, mr := newTestCounter(t)

	_, err := counter.Increment(context.Background(), 1, quota.WindowMinute)
	require.NoError(t, err)
	_, err = counter.Increment(context.Background(), 1, quota.WindowHour)
	require.NoError(t, err)
	_, err = counter.Increment(context.Background(), 2, quota.WindowMinute)
	require.NoError(t, err)

	assert.Equal(t, "1", mustGet(t, mr, "rate_limit:1::minute"))
	assert.Equal(t, "1", mustGet(t, mr, "rate_limit:1::hour"))
	assert.Equal(t, "1", mustGet(t, mr, "rate_limit:2::minute"))
	assert.Equal(t, time.Hour, mr.TTL("rate_limit:1::hour"))
}

func TestIncrement_StoreUnavailable(t *testing.T) {
	counter, mr := newTestCounter(t)
	mr.Close()

	_, err := counter.Increment(context.Background(), 42, quota.WindowMinute)
	assert.ErrorIs(t, err, ierr.ErrStoreUnavailable)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	value, err := mr.Get(key)
	require.NoError(t, err)
	return value
}
