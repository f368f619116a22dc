package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RequestRecord is one observed request, written to the audit sink after
// the response is sent. It never influences the admission decision.
type RequestRecord struct {
	ID             int64     `db:"id"`
	RequestID      uuid.UUID `db:"request_id"`
	OwnerID        *int64    `db:"owner_id"`
	Method         string    `db:"method"`
	Path           string    `db:"path"`
	StatusCode     int       `db:"status_code"`
	ResponseTimeMs int64     `db:"response_time_ms"`
	RequestBytes   int64     `db:"request_size_bytes"`
	ResponseBytes  int64     `db:"response_size_bytes"`
	IPAddress      string    `db:"ip_address"`
	UserAgent      string    `db:"user_agent"`
	CreatedAt      time.Time `db:"created_at"`
}

// RequestStore is the write-only sink port for request records.
type RequestStore interface {
	Create(ctx context.Context, rec *RequestRecord) error
}
