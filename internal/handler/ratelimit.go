package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sentinelstack/apigateway/internal/domain/quota"
	"github.com/sentinelstack/apigateway/internal/handler/dto"
	"github.com/sentinelstack/apigateway/internal/handler/middleware"
	"github.com/sentinelstack/apigateway/internal/ierr"
	"github.com/sentinelstack/apigateway/internal/service"
	"go.uber.org/zap"
)

type RateLimitHandler struct {
	service *service.RateLimitService
	logger  *zap.Logger
}

func NewRateLimitHandler(service *service.RateLimitService, logger *zap.Logger) *RateLimitHandler {
	return &RateLimitHandler{
		service: service,
		logger:  logger.Named("RateLimitHandler"),
	}
}

func (h *RateLimitHandler) Get(c *gin.Context) {
	callerID, ok := middleware.GetCallerID(c)
	if !ok {
		_ = c.Error(ierr.ErrUnauthorized)
		return
	}

	policy, err := h.service.Resolve(c.Request.Context(), callerID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRateLimitResponse(policy))
}

func (h *RateLimitHandler) Update(c *gin.Context) {
	callerID, ok := middleware.GetCallerID(c)
	if !ok {
		_ = c.Error(ierr.ErrUnauthorized)
		return
	}

	var req dto.UpdateRateLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind rate limit update request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	policy := &quota.Policy{
		OwnerID:   callerID,
		PerMinute: req.PerMinute,
		PerHour:   req.PerHour,
		PerDay:    req.PerDay,
	}

	saved, err := h.service.SavePolicy(c.Request.Context(), policy)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRateLimitResponse(saved))
}

// Default returns the process-wide fallback policy. No auth required.
func (h *RateLimitHandler) Default(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewRateLimitResponse(quota.DefaultPolicy()))
}
