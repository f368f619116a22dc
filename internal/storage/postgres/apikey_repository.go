package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sentinelstack/apigateway/internal/domain/apikey"
	"github.com/sentinelstack/apigateway/internal/ierr"
	"go.uber.org/zap"
)

type APIKeyRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAPIKeyRepository(db *pgxpool.Pool, logger *zap.Logger) *APIKeyRepository {
	return &APIKeyRepository{
		db:     db,
		logger: logger.Named("APIKeyRepository"),
	}
}

var _ apikey.KeyStore = (*APIKeyRepository)(nil)

const apiKeyColumns = `id, owner_id, name, prefix, secret_hash, status, requests_per_minute, requests_per_day, last_used_at, expires_at, created_at`

func (r *APIKeyRepository) Create(ctx context.Context, key *apikey.APIKey) (int64, error) {
	query := `
		INSERT INTO api_keys (owner_id, name, prefix, secret_hash, status, requests_per_minute, requests_per_day, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		key.OwnerID,
		key.Name,
		key.Prefix,
		key.SecretHash,
		key.Status,
		key.PerMinute,
		key.PerDay,
		key.ExpiresAt,
	).Scan(&key.ID, &key.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Failed to create API key due to unique constraint violation",
				zap.String("constraint", pgErr.ConstraintName),
				zap.String("prefix", key.Prefix),
			)
			return 0, fmt.Errorf("%w: api key constraint violation (%s)", ierr.ErrConflict, pgErr.ConstraintName)
		}
		r.logger.Error("Failed to create api key in database", zap.Error(err))
		return 0, fmt.Errorf("db error creating api key: %w", err)
	}

	return key.ID, nil
}

func (r *APIKeyRepository) FindByID(ctx context.Context, id int64) (*apikey.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1`

	key, err := scanAPIKey(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ierr.ErrAPIKeyNotFound
		}
		r.logger.Error("Failed to find api key by id", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("db error finding api key: %w", err)
	}
	return key, nil
}

// FindByPrefix returns every key whose prefix matches, regardless of
// owner or status. Validation needs all collisions, and status filtering
// belongs to the service so expired keys can still be distinguished.
func (r *APIKeyRepository) FindByPrefix(ctx context.Context, prefix string) ([]*apikey.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE prefix = $1`

	rows, err := r.db.Query(ctx, query, prefix)
	if err != nil {
		r.logger.Error("Failed to query api keys by prefix", zap.String("prefix", prefix), zap.Error(err))
		return nil, fmt.Errorf("db error finding api keys by prefix: %w", err)
	}
	defer rows.Close()

	return collectAPIKeys(rows)
}

func (r *APIKeyRepository) FindByOwner(ctx context.Context, ownerID int64) ([]*apikey.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("Failed to query api keys by owner", zap.Int64("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("db error listing api keys: %w", err)
	}
	defer rows.Close()

	return collectAPIKeys(rows)
}

func (r *APIKeyRepository) UpdateStatus(ctx context.Context, id int64, status apikey.Status) error {
	query := `UPDATE api_keys SET status = $1 WHERE id = $2`
	cmdTag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update api key status", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("db error updating api key status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ierr.ErrAPIKeyNotFound
	}
	return nil
}

func (r *APIKeyRepository) UpdateLastUsed(ctx context.Context, id int64, lastUsed time.Time) error {
	query := `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`
	cmdTag, err := r.db.Exec(ctx, query, lastUsed, id)
	if err != nil {
		r.logger.Error("Failed to update api key last_used_at", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("db error updating last used time: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("API key not found when updating last_used_at", zap.Int64("id", id))
	}
	return nil
}

func (r *APIKeyRepository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE api_keys SET status = $1 WHERE status = $2 AND expires_at IS NOT NULL AND expires_at < $3`
	cmdTag, err := r.db.Exec(ctx, query, apikey.StatusExpired, apikey.StatusActive, now)
	if err != nil {
		r.logger.Error("Failed to mark expired api keys", zap.Error(err))
		return 0, fmt.Errorf("db error marking expired api keys: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

func scanAPIKey(row pgx.Row) (*apikey.APIKey, error) {
	var key apikey.APIKey
	err := row.Scan(
		&key.ID,
		&key.OwnerID,
		&key.Name,
		&key.Prefix,
		&key.SecretHash,
		&key.Status,
		&key.PerMinute,
		&key.PerDay,
		&key.LastUsedAt,
		&key.ExpiresAt,
		&key.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func collectAPIKeys(rows pgx.Rows) ([]*apikey.APIKey, error) {
	var keys []*apikey.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("db error scanning api key row: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error iterating api key rows: %w", err)
	}
	return keys, nil
}
