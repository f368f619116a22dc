package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sentinelstack/apigateway/internal/domain/audit"
	"go.uber.org/zap"
)

type RequestRecordHandler struct {
	store  audit.RequestStore
	logger *zap.Logger
}

func NewRequestRecordHandler(store audit.RequestStore, logger *zap.Logger) *RequestRecordHandler {
	return &RequestRecordHandler{
		store:  store,
		logger: logger.Named("RequestRecordHandler"),
	}
}

func (h *RequestRecordHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeRequestRecord {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	var rec audit.RequestRecord
	if err := json.Unmarshal(t.Payload(), &rec); err != nil {
		h.logger.Error("Failed to unmarshal request record payload", zap.Error(err), zap.ByteString("payload", t.Payload()))
		return fmt.Errorf("invalid payload: %v", err)
	}

	if err := h.store.Create(ctx, &rec); err != nil {
		h.logger.Error("Failed to persist request record", zap.String("request_id", rec.RequestID.String()), zap.Error(err))
		return fmt.Errorf("repository error persisting request record: %w", err)
	}

	return nil
}
