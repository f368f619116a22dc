package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sentinelstack/apigateway/internal/domain/audit"
	"go.uber.org/zap"
)

type RequestRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewRequestRepository(db *pgxpool.Pool, logger *zap.Logger) *RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger.Named("RequestRepository"),
	}
}

var _ audit.RequestStore = (*RequestRepository)(nil)

func (r *RequestRepository) Create(ctx context.Context, rec *audit.RequestRecord) error {
	query := `
		INSERT INTO api_requests (request_id, owner_id, method, path, status_code, response_time_ms, request_size_bytes, response_size_bytes, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		rec.RequestID,
		rec.OwnerID,
		rec.Method,
		rec.Path,
		rec.StatusCode,
		rec.ResponseTimeMs,
		rec.RequestBytes,
		rec.ResponseBytes,
		rec.IPAddress,
		rec.UserAgent,
	)
	if err != nil {
		r.logger.Error("Failed to insert request record", zap.String("request_id", rec.RequestID.String()), zap.Error(err))
		return fmt.Errorf("db error inserting request record: %w", err)
	}
	return nil
}
