package dto

import (
	"time"

	"github.com/sentinelstack/apigateway/internal/domain/quota"
)

type UpdateRateLimitRequest struct {
	PerMinute *int `json:"perMinute" binding:"omitempty,gte=1"`
	PerHour   *int `json:"perHour" binding:"omitempty,gte=1"`
	PerDay    *int `json:"perDay" binding:"omitempty,gte=1"`
}

type RateLimitResponse struct {
	OwnerID   int64      `json:"ownerId,omitempty"`
	PerMinute *int       `json:"perMinute,omitempty"`
	PerHour   *int       `json:"perHour,omitempty"`
	PerDay    *int       `json:"perDay,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func NewRateLimitResponse(p *quota.Policy) *RateLimitResponse {
	resp := &RateLimitResponse{
		OwnerID:   p.OwnerID,
		PerMinute: p.PerMinute,
		PerHour:   p.PerHour,
		PerDay:    p.PerDay,
	}
	if !p.CreatedAt.IsZero() {
		createdAt := p.CreatedAt
		resp.CreatedAt = &createdAt
	}
	if !p.UpdatedAt.IsZero() {
		updatedAt := p.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}
