package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sentinelstack/apigateway/internal/domain/audit"
)

const (
	TypeRequestRecord     = "audit:request:record"
	TypeAPIKeyExpireSweep = "apikey:expire:sweep"
)

// NewRequestRecordTask wraps one audit record for asynchronous
// persistence.
func NewRequestRecordTask(rec *audit.RequestRecord, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRequestRecord, payload, opts...), nil
}

type ExpireSweepPayload struct{}

// NewAPIKeyExpireSweepTask builds the periodic sweep that transitions
// active keys past their expiry to the expired status. Unique so
// overlapping schedules collapse into one run.
func NewAPIKeyExpireSweepTask(opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(ExpireSweepPayload{})
	if err != nil {
		return nil, err
	}

	uniqueOpt := asynq.Unique(1 * time.Hour)
	allOpts := append(opts, uniqueOpt)

	return asynq.NewTask(TypeAPIKeyExpireSweep, payload, allOpts...), nil
}
