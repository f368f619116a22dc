package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sentinelstack/apigateway/internal/domain/quota"
	"github.com/sentinelstack/apigateway/internal/ierr"
)

// WindowCounter implements quota.Counter on a shared Redis instance so
// every server process sees the same counts. INCR is atomic server-side;
// the TTL is set only when the increment created the entry, so later
// increments never extend a window.
type WindowCounter struct {
	client  redis.UniversalClient
	timeout time.Duration
}

func NewWindowCounter(client redis.UniversalClient, timeout time.Duration) *WindowCounter {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &WindowCounter{
		client:  client,
		timeout: timeout,
	}
}

var _ quota.Counter = (*WindowCounter)(nil)

func (c *WindowCounter) Increment(ctx context.Context, ownerID int64, window quota.Window) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	key := counterKey(ownerID, window)

	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: incr %s: %v", ierr.ErrStoreUnavailable, key, err)
	}

	if count == 1 {
		if err := c.client.Expire(ctx, key, window.Duration()).Err(); err != nil {
			return 0, fmt.Errorf("%w: expire %s: %v", ierr.ErrStoreUnavailable, key, err)
		}
	}

	return count, nil
}

func counterKey(ownerID int64, window quota.Window) string {
	return fmt.Sprintf("rate_limit:%d::%s", ownerID, window)
}
