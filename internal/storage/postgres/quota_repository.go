package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sentinelstack/apigateway/internal/domain/quota"
	"github.com/sentinelstack/apigateway/internal/ierr"
	"go.uber.org/zap"
)

type QuotaPolicyRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewQuotaPolicyRepository(db *pgxpool.Pool, logger *zap.Logger) *QuotaPolicyRepository {
	return &QuotaPolicyRepository{
		db:     db,
		logger: logger.Named("QuotaPolicyRepository"),
	}
}

var _ quota.PolicyStore = (*QuotaPolicyRepository)(nil)

func (r *QuotaPolicyRepository) FindByOwner(ctx context.Context, ownerID int64) (*quota.Policy, error) {
	query := `
		SELECT owner_id, requests_per_minute, requests_per_hour, requests_per_day, created_at, updated_at
		FROM rate_limits
		WHERE owner_id = $1
	`
	var policy quota.Policy
	err := r.db.QueryRow(ctx, query, ownerID).Scan(
		&policy.OwnerID,
		&policy.PerMinute,
		&policy.PerHour,
		&policy.PerDay,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no quota policy for owner %d", ierr.ErrNotFound, ownerID)
		}
		r.logger.Error("Failed to find quota policy", zap.Int64("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("db error finding quota policy: %w", err)
	}
	return &policy, nil
}

func (r *QuotaPolicyRepository) Save(ctx context.Context, policy *quota.Policy) (*quota.Policy, error) {
	query := `
		INSERT INTO rate_limits (owner_id, requests_per_minute, requests_per_hour, requests_per_day)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id) DO UPDATE SET
			requests_per_minute = EXCLUDED.requests_per_minute,
			requests_per_hour = EXCLUDED.requests_per_hour,
			requests_per_day = EXCLUDED.requests_per_day,
			updated_at = NOW()
		RETURNING owner_id, requests_per_minute, requests_per_hour, requests_per_day, created_at, updated_at
	`
	var saved quota.Policy
	err := r.db.QueryRow(ctx, query,
		policy.OwnerID,
		policy.PerMinute,
		policy.PerHour,
		policy.PerDay,
	).Scan(
		&saved.OwnerID,
		&saved.PerMinute,
		&saved.PerHour,
		&saved.PerDay,
		&saved.CreatedAt,
		&saved.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert quota policy", zap.Int64("owner_id", policy.OwnerID), zap.Error(err))
		return nil, fmt.Errorf("db error saving quota policy: %w", err)
	}
	return &saved, nil
}
