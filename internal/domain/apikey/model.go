package apikey

import "time"

type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

const (
	// KeyTag is a fixed literal marker so operators can recognize a
	// credential in logs and config without it being secret-bearing.
	KeyTag = "sk_live_"

	// SecretBytes is the entropy of the random part (256 bits).
	SecretBytes = 32

	// PrefixLength is the number of leading characters of the full key
	// stored in clear for lookup and display. Never used to authorize.
	PrefixLength = 12
)

// Per-key limit defaults applied when a create request leaves them unset.
const (
	DefaultPerMinute = 60
	DefaultPerDay    = 10000
)

// APIKey is the persisted credential record. The plaintext secret is never
// stored; only SecretHash (bcrypt) survives creation.
type APIKey struct {
	ID         int64      `db:"id"`
	OwnerID    int64      `db:"owner_id"`
	Name       string     `db:"name"`
	Prefix     string     `db:"prefix"`
	SecretHash string     `db:"secret_hash"`
	Status     Status     `db:"status"`
	PerMinute  int        `db:"requests_per_minute"`
	PerDay     int        `db:"requests_per_day"`
	LastUsedAt *time.Time `db:"last_used_at"`
	ExpiresAt  *time.Time `db:"expires_at"`
	CreatedAt  time.Time  `db:"created_at"`
}

// EffectivelyActive reports whether the key may authenticate requests at
// the given instant: status active and not past its expiry. Evaluated
// fresh on every validation, never cached.
func (k *APIKey) EffectivelyActive(now time.Time) bool {
	if k.Status != StatusActive {
		return false
	}
	if k.ExpiresAt != nil && k.ExpiresAt.Before(now) {
		return false
	}
	return true
}
