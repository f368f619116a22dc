package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sentinelstack/apigateway/internal/domain/quota"
	"github.com/sentinelstack/apigateway/internal/ierr"
	"github.com/sentinelstack/apigateway/internal/metrics"
	"go.uber.org/zap"
)

// RateLimitService resolves per-caller quota policies and enforces them
// against the shared window counters.
type RateLimitService struct {
	policies quota.PolicyStore
	counter  quota.Counter
	logger   *zap.Logger
}

func NewRateLimitService(policies quota.PolicyStore, counter quota.Counter, logger *zap.Logger) *RateLimitService {
	return &RateLimitService{
		policies: policies,
		counter:  counter,
		logger:   logger.Named("RateLimitService"),
	}
}

// Resolve returns the caller's saved policy, or the process-wide default
// when none exists. Lookup never persists anything.
func (s *RateLimitService) Resolve(ctx context.Context, ownerID int64) (*quota.Policy, error) {
	policy, err := s.policies.FindByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, ierr.ErrNotFound) {
			def := quota.DefaultPolicy()
			def.OwnerID = ownerID
			return def, nil
		}
		s.logger.Error("Failed to load quota policy", zap.Int64("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("repository error loading quota policy: %w", err)
	}
	return policy, nil
}

// SavePolicy upserts the caller's policy. Limits are optional, but any
// present value must be at least 1.
func (s *RateLimitService) SavePolicy(ctx context.Context, policy *quota.Policy) (*quota.Policy, error) {
	for _, limit := range []*int{policy.PerMinute, policy.PerHour, policy.PerDay} {
		if limit != nil && *limit < 1 {
			return nil, fmt.Errorf("%w: rate limits must be at least 1", ierr.ErrValidation)
		}
	}

	saved, err := s.policies.Save(ctx, policy)
	if err != nil {
		s.logger.Error("Failed to save quota policy", zap.Int64("owner_id", policy.OwnerID), zap.Error(err))
		return nil, fmt.Errorf("repository error saving quota policy: %w", err)
	}

	s.logger.Info("Quota policy saved", zap.Int64("owner_id", policy.OwnerID))
	return saved, nil
}

// IsExceeded walks the caller's windows finest first: minute, hour, day.
// Each configured window's counter is incremented and compared; the first
// exceeded window stops evaluation, leaving coarser counters untouched
// for this call. Counter store failures admit the request (fail-open) and
// are surfaced through logs and metrics instead.
func (s *RateLimitService) IsExceeded(ctx context.Context, ownerID int64) bool {
	policy, err := s.Resolve(ctx, ownerID)
	if err != nil {
		// Durable store down: enforce the defaults rather than stalling
		// or rejecting every caller.
		policy = quota.DefaultPolicy()
		policy.OwnerID = ownerID
	}

	for _, window := range quota.Windows {
		limit := policy.Limit(window)
		if limit == nil {
			continue
		}

		count, err := s.counter.Increment(ctx, ownerID, window)
		if err != nil {
			metrics.CounterStoreErrors.Inc()
			s.logger.Error("Counter store failure, admitting request",
				zap.Int64("owner_id", ownerID),
				zap.String("window", window.String()),
				zap.Error(err),
			)
			continue
		}

		if count > int64(*limit) {
			s.logger.Debug("Rate limit exceeded",
				zap.Int64("owner_id", ownerID),
				zap.String("window", window.String()),
				zap.Int64("count", count),
				zap.Int("limit", *limit),
			)
			return true
		}
	}

	return false
}
