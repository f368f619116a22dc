package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sentinelstack/apigateway/internal/handler/dto"
	"github.com/sentinelstack/apigateway/internal/handler/middleware"
	"github.com/sentinelstack/apigateway/internal/ierr"
	"github.com/sentinelstack/apigateway/internal/service"
	"go.uber.org/zap"
)

type APIKeyHandler struct {
	service *service.APIKeyService
	logger  *zap.Logger
}

func NewAPIKeyHandler(service *service.APIKeyService, logger *zap.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		service: service,
		logger:  logger.Named("APIKeyHandler"),
	}
}

func (h *APIKeyHandler) Create(c *gin.Context) {
	callerID, ok := middleware.GetCallerID(c)
	if !ok {
		_ = c.Error(ierr.ErrUnauthorized)
		return
	}

	var req dto.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind create api key request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	resp, err := h.service.CreateAPIKey(c.Request.Context(), callerID, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *APIKeyHandler) List(c *gin.Context) {
	callerID, ok := middleware.GetCallerID(c)
	if !ok {
		_ = c.Error(ierr.ErrUnauthorized)
		return
	}

	keys, err := h.service.ListAPIKeys(c.Request.Context(), callerID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, keys)
}

func (h *APIKeyHandler) Revoke(c *gin.Context) {
	callerID, ok := middleware.GetCallerID(c)
	if !ok {
		_ = c.Error(ierr.ErrUnauthorized)
		return
	}

	idStr := c.Param("id")
	keyID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.logger.Warn("Invalid api key id for revoke", zap.String("id_param", idStr))
		_ = c.Error(fmt.Errorf("%w: invalid api key id format", ierr.ErrValidation))
		return
	}

	if err := h.service.RevokeAPIKey(c.Request.Context(), callerID, keyID); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
