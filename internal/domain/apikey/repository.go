package apikey

import (
	"context"
	"time"
)

// KeyStore is the persistence port for API key records. Keys are never
// deleted, only status-transitioned.
type KeyStore interface {
	Create(ctx context.Context, key *APIKey) (int64, error)
	FindByID(ctx context.Context, id int64) (*APIKey, error)
	// FindByPrefix returns every key whose prefix matches. Prefixes can
	// collide across owners, so validation must consider all of them.
	FindByPrefix(ctx context.Context, prefix string) ([]*APIKey, error)
	FindByOwner(ctx context.Context, ownerID int64) ([]*APIKey, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	UpdateLastUsed(ctx context.Context, id int64, lastUsed time.Time) error
	// MarkExpired transitions every active key whose expiry lies before
	// now to StatusExpired and returns how many rows changed.
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
}
