package memstorage

import (
	"context"
	"sync"
	"time"

	"github.com/sentinelstack/apigateway/internal/domain/apikey"
	"github.com/sentinelstack/apigateway/internal/ierr"
)

// APIKeyStore is an in-memory apikey.KeyStore for tests and local runs.
type APIKeyStore struct {
	mu     sync.RWMutex
	keys   map[int64]*apikey.APIKey
	nextID int64
}

func NewAPIKeyStore() *APIKeyStore {
	return &APIKeyStore{
		keys:   make(map[int64]*apikey.APIKey),
		nextID: 1,
	}
}

var _ apikey.KeyStore = (*APIKeyStore)(nil)

func (s *APIKeyStore) Create(ctx context.Context, key *apikey.APIKey) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.keys {
		if existing.SecretHash == key.SecretHash {
			return 0, ierr.ErrConflict
		}
	}

	stored := *key
	stored.ID = s.nextID
	s.nextID++
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.keys[stored.ID] = &stored

	key.ID = stored.ID
	key.CreatedAt = stored.CreatedAt
	return stored.ID, nil
}

func (s *APIKeyStore) FindByID(ctx context.Context, id int64) (*apikey.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[id]
	if !ok {
		return nil, ierr.ErrAPIKeyNotFound
	}
	keyCopy := *key
	return &keyCopy, nil
}

func (s *APIKeyStore) FindByPrefix(ctx context.Context, prefix string) ([]*apikey.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*apikey.APIKey
	for _, key := range s.keys {
		if key.Prefix == prefix {
			keyCopy := *key
			matches = append(matches, &keyCopy)
		}
	}
	return matches, nil
}

func (s *APIKeyStore) FindByOwner(ctx context.Context, ownerID int64) ([]*apikey.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*apikey.APIKey
	for _, key := range s.keys {
		if key.OwnerID == ownerID {
			keyCopy := *key
			matches = append(matches, &keyCopy)
		}
	}
	return matches, nil
}

func (s *APIKeyStore) UpdateStatus(ctx context.Context, id int64, status apikey.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[id]
	if !ok {
		return ierr.ErrAPIKeyNotFound
	}
	key.Status = status
	return nil
}

func (s *APIKeyStore) UpdateLastUsed(ctx context.Context, id int64, lastUsed time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[id]
	if !ok {
		return ierr.ErrAPIKeyNotFound
	}
	key.LastUsedAt = &lastUsed
	return nil
}

func (s *APIKeyStore) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for _, key := range s.keys {
		if key.Status == apikey.StatusActive && key.ExpiresAt != nil && key.ExpiresAt.Before(now) {
			key.Status = apikey.StatusExpired
			changed++
		}
	}
	return changed, nil
}
