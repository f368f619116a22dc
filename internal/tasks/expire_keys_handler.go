package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sentinelstack/apigateway/internal/domain/apikey"
	"go.uber.org/zap"
)

// APIKeyExpireHandler sweeps active keys whose expiry has passed. The
// validation path already rejects them fresh on every call; the sweep
// only keeps the stored status honest for listings.
type APIKeyExpireHandler struct {
	store  apikey.KeyStore
	logger *zap.Logger
}

func NewAPIKeyExpireHandler(store apikey.KeyStore, logger *zap.Logger) *APIKeyExpireHandler {
	return &APIKeyExpireHandler{
		store:  store,
		logger: logger.Named("APIKeyExpireHandler"),
	}
}

func (h *APIKeyExpireHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeAPIKeyExpireSweep {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	var p ExpireSweepPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error("Failed to unmarshal expire sweep payload", zap.Error(err), zap.ByteString("payload", t.Payload()))
		return fmt.Errorf("invalid payload: %v", err)
	}

	changed, err := h.store.MarkExpired(ctx, time.Now().UTC())
	if err != nil {
		h.logger.Error("API key expiry sweep failed", zap.Error(err))
		return fmt.Errorf("repository error sweeping expired keys: %w", err)
	}

	h.logger.Info("API key expiry sweep finished", zap.Int64("keys_expired", changed))
	return nil
}
