package dto

import (
	"time"

	"github.com/sentinelstack/apigateway/internal/domain/apikey"
)

type CreateAPIKeyRequest struct {
	Name          string `json:"name" binding:"required,max=100"`
	PerMinute     *int   `json:"perMinute" binding:"omitempty,gte=1"`
	PerDay        *int   `json:"perDay" binding:"omitempty,gte=1"`
	ExpiresInDays *int   `json:"expiresInDays" binding:"omitempty,gte=1"`
}

// CreateAPIKeyResponse is the only place the plaintext credential ever
// appears. FullKey is unrecoverable after this response.
type CreateAPIKeyResponse struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Prefix    string     `json:"prefix"`
	Status    string     `json:"status"`
	PerMinute int        `json:"perMinute"`
	PerDay    int        `json:"perDay"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	FullKey   string     `json:"fullKey"`
}

type APIKeyResponse struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix"`
	Status     string     `json:"status"`
	PerMinute  int        `json:"perMinute"`
	PerDay     int        `json:"perDay"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func NewCreateAPIKeyResponse(key *apikey.APIKey, fullKey string) *CreateAPIKeyResponse {
	return &CreateAPIKeyResponse{
		ID:        key.ID,
		Name:      key.Name,
		Prefix:    key.Prefix,
		Status:    string(key.Status),
		PerMinute: key.PerMinute,
		PerDay:    key.PerDay,
		ExpiresAt: key.ExpiresAt,
		CreatedAt: key.CreatedAt,
		FullKey:   fullKey,
	}
}

func NewAPIKeyResponse(key *apikey.APIKey) *APIKeyResponse {
	return &APIKeyResponse{
		ID:         key.ID,
		Name:       key.Name,
		Prefix:     key.Prefix,
		Status:     string(key.Status),
		PerMinute:  key.PerMinute,
		PerDay:     key.PerDay,
		LastUsedAt: key.LastUsedAt,
		ExpiresAt:  key.ExpiresAt,
		CreatedAt:  key.CreatedAt,
	}
}
