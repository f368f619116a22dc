package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sentinelstack/apigateway/internal/config"
	"github.com/sentinelstack/apigateway/internal/domain/apikey"
	"github.com/sentinelstack/apigateway/internal/handler/dto"
	"github.com/sentinelstack/apigateway/internal/ierr"
	"github.com/sentinelstack/apigateway/internal/metrics"
	"github.com/sentinelstack/apigateway/internal/util"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// APIKeyService issues, validates and revokes API key credentials. All
// bcrypt work goes through a bounded semaphore so a burst of validations
// cannot monopolize request-handling capacity.
type APIKeyService struct {
	store     apikey.KeyStore
	logger    *zap.Logger
	rand      io.Reader
	cost      int
	hashSem   *semaphore.Weighted
	dummyHash []byte
	now       func() time.Time
}

func NewAPIKeyService(store apikey.KeyStore, cfg *config.HashingConfig, logger *zap.Logger) (*APIKeyService, error) {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	concurrency := cfg.MaxConcurrent
	if concurrency < 1 {
		concurrency = 1
	}

	// Compared against when no prefix candidate exists, so a miss costs
	// the same whether or not any key shares the prefix.
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("sentinelstack-no-such-key"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to precompute dummy hash: %w", err)
	}

	return &APIKeyService{
		store:     store,
		logger:    logger.Named("APIKeyService"),
		rand:      rand.Reader,
		cost:      cost,
		hashSem:   semaphore.NewWeighted(concurrency),
		dummyHash: dummyHash,
		now:       time.Now,
	}, nil
}

// CreateAPIKey mints a new credential for ownerID. The plaintext full key
// is returned exactly once, in the response; only its bcrypt hash is
// persisted.
func (s *APIKeyService) CreateAPIKey(ctx context.Context, ownerID int64, req *dto.CreateAPIKeyRequest) (*dto.CreateAPIKeyResponse, error) {
	s.logger.Info("Generating new API key", zap.Int64("owner_id", ownerID), zap.String("name", req.Name))

	fullKey, prefix, err := util.GenerateAPIKey(s.rand)
	if err != nil {
		s.logger.Error("Failed to generate api key", zap.Error(err))
		return nil, fmt.Errorf("%w: failed generating key: %v", ierr.ErrInternalServer, err)
	}

	secretHash, err := s.hashSecret(ctx, fullKey)
	if err != nil {
		s.logger.Error("Failed to hash api key secret", zap.Error(err))
		return nil, fmt.Errorf("%w: failed hashing key: %v", ierr.ErrInternalServer, err)
	}

	newKey := &apikey.APIKey{
		OwnerID:    ownerID,
		Name:       req.Name,
		Prefix:     prefix,
		SecretHash: secretHash,
		Status:     apikey.StatusActive,
		PerMinute:  apikey.DefaultPerMinute,
		PerDay:     apikey.DefaultPerDay,
	}
	if req.PerMinute != nil {
		newKey.PerMinute = *req.PerMinute
	}
	if req.PerDay != nil {
		newKey.PerDay = *req.PerDay
	}
	if req.ExpiresInDays != nil && *req.ExpiresInDays > 0 {
		expiresAt := s.now().UTC().AddDate(0, 0, *req.ExpiresInDays)
		newKey.ExpiresAt = &expiresAt
	}

	insertedID, err := s.store.Create(ctx, newKey)
	if err != nil {
		s.logger.Error("Failed to save new api key", zap.Error(err))
		return nil, fmt.Errorf("repository error creating api key: %w", err)
	}
	newKey.ID = insertedID
	if newKey.CreatedAt.IsZero() {
		newKey.CreatedAt = s.now().UTC()
	}

	resp := dto.NewCreateAPIKeyResponse(newKey, fullKey)

	s.logger.Info("API key created successfully",
		zap.Int64("id", insertedID),
		zap.Int64("owner_id", ownerID),
		zap.String("prefix", prefix),
	)
	return resp, nil
}

// ValidateAPIKey resolves a candidate secret to the owning caller id.
// Every stored key sharing the candidate's prefix is considered; the
// first match that is effectively active wins. A miss is reported as
// ierr.ErrAPIKeyNotFound without revealing whether a candidate existed.
func (s *APIKeyService) ValidateAPIKey(ctx context.Context, candidate string) (int64, error) {
	if candidate == "" || len(candidate) < apikey.PrefixLength {
		metrics.KeyValidations.WithLabelValues(metrics.ResultNoMatch).Inc()
		return 0, ierr.ErrAPIKeyNotFound
	}

	prefix := candidate[:apikey.PrefixLength]

	keys, err := s.store.FindByPrefix(ctx, prefix)
	if err != nil {
		s.logger.Error("Failed to look up api keys by prefix", zap.String("prefix", prefix), zap.Error(err))
		return 0, fmt.Errorf("repository error finding api keys: %w", err)
	}

	now := s.now().UTC()
	sawInactive := false

	for _, key := range keys {
		match, err := s.verifySecret(ctx, key.SecretHash, candidate)
		if err != nil {
			return 0, err
		}
		if !match {
			continue
		}
		if !key.EffectivelyActive(now) {
			sawInactive = true
			continue
		}

		s.touchLastUsed(key.ID, now)

		metrics.KeyValidations.WithLabelValues(metrics.ResultMatched).Inc()
		s.logger.Debug("API key validated",
			zap.Int64("key_id", key.ID),
			zap.Int64("owner_id", key.OwnerID),
			zap.String("prefix", prefix),
		)
		return key.OwnerID, nil
	}

	if len(keys) == 0 {
		// Burn a comparison so "no candidate at all" is not faster than
		// "candidate existed but wrong secret".
		if _, err := s.verifySecret(ctx, string(s.dummyHash), candidate); err != nil {
			return 0, err
		}
	}

	if sawInactive {
		metrics.KeyValidations.WithLabelValues(metrics.ResultInactive).Inc()
	} else {
		metrics.KeyValidations.WithLabelValues(metrics.ResultNoMatch).Inc()
	}
	return 0, ierr.ErrAPIKeyNotFound
}

// RevokeAPIKey transitions a key to revoked. Revoking an already-revoked
// key succeeds silently; keys are never deleted.
func (s *APIKeyService) RevokeAPIKey(ctx context.Context, ownerID, keyID int64) error {
	key, err := s.store.FindByID(ctx, keyID)
	if err != nil {
		if errors.Is(err, ierr.ErrAPIKeyNotFound) {
			return fmt.Errorf("%w: api key %d", ierr.ErrNotFound, keyID)
		}
		s.logger.Error("Failed to load api key for revocation", zap.Int64("key_id", keyID), zap.Error(err))
		return fmt.Errorf("repository error loading api key: %w", err)
	}

	if key.OwnerID != ownerID {
		s.logger.Warn("Revocation denied: key belongs to another owner",
			zap.Int64("key_id", keyID),
			zap.Int64("owner_id", ownerID),
		)
		return fmt.Errorf("%w: api key %d", ierr.ErrForbidden, keyID)
	}

	if key.Status == apikey.StatusRevoked {
		return nil
	}

	if err := s.store.UpdateStatus(ctx, keyID, apikey.StatusRevoked); err != nil {
		s.logger.Error("Failed to revoke api key", zap.Int64("key_id", keyID), zap.Error(err))
		return fmt.Errorf("repository error revoking api key %d: %w", keyID, err)
	}

	s.logger.Info("API key revoked", zap.Int64("key_id", keyID), zap.Int64("owner_id", ownerID))
	return nil
}

// ListAPIKeys returns the owner's key metadata. Secret hashes never leave
// the service.
func (s *APIKeyService) ListAPIKeys(ctx context.Context, ownerID int64) ([]*dto.APIKeyResponse, error) {
	keys, err := s.store.FindByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("Failed to list api keys", zap.Int64("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("repository error listing api keys: %w", err)
	}

	responses := make([]*dto.APIKeyResponse, len(keys))
	for i, key := range keys {
		responses[i] = dto.NewAPIKeyResponse(key)
	}
	return responses, nil
}

func (s *APIKeyService) hashSecret(ctx context.Context, secret string) (string, error) {
	if err := s.hashSem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.hashSem.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *APIKeyService) verifySecret(ctx context.Context, secretHash, candidate string) (bool, error) {
	if err := s.hashSem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer s.hashSem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(candidate))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("%w: secret verification failed: %v", ierr.ErrInternalServer, err)
}

// touchLastUsed records key usage best-effort, detached from the request:
// its failure never changes a validation outcome.
func (s *APIKeyService) touchLastUsed(keyID int64, at time.Time) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.UpdateLastUsed(ctx, keyID, at); err != nil {
			s.logger.Warn("Failed to update api key last used time", zap.Int64("key_id", keyID), zap.Error(err))
		}
	}()
}
