package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sentinelstack/apigateway/internal/ierr"
	"github.com/sentinelstack/apigateway/internal/service"
	"go.uber.org/zap"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
	apiKeyHeader        = "X-API-Key"
	callerContextKey    = "callerID"
)

// Authenticate resolves the caller identity from a Bearer token or an
// X-API-Key credential and stores it in the request context. It never
// aborts: unauthenticated requests flow on so RequireAuth can reject them
// at protected routes, and the admission gate takes no rate-limiting
// action for them.
func Authenticate(authService *service.AuthService, keyService *service.APIKeyService, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("Authenticate")
	return func(c *gin.Context) {
		if authHeader := c.GetHeader(authorizationHeader); strings.HasPrefix(authHeader, bearerPrefix) {
			token := strings.TrimPrefix(authHeader, bearerPrefix)
			callerID, err := authService.Verify(c.Request.Context(), token)
			if err == nil {
				c.Set(callerContextKey, callerID)
				c.Next()
				return
			}
			log.Debug("Bearer token rejected", zap.Error(err))
		}

		if candidate := c.GetHeader(apiKeyHeader); candidate != "" {
			callerID, err := keyService.ValidateAPIKey(c.Request.Context(), candidate)
			if err == nil {
				c.Set(callerContextKey, callerID)
				c.Next()
				return
			}
			if !errors.Is(err, ierr.ErrAPIKeyNotFound) {
				log.Error("API key validation failed", zap.Error(err))
			}
		}

		c.Next()
	}
}

// RequireAuth aborts with 401 when no caller identity was resolved.
func RequireAuth(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("RequireAuth")
	return func(c *gin.Context) {
		if _, ok := GetCallerID(c); !ok {
			log.Debug("Request without resolved caller identity", zap.String("path", c.Request.URL.Path))
			_ = c.Error(fmt.Errorf("%w: authentication required", ierr.ErrUnauthorized))
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetCallerID returns the authenticated caller id set by Authenticate.
func GetCallerID(c *gin.Context) (int64, bool) {
	value, exists := c.Get(callerContextKey)
	if !exists {
		return 0, false
	}
	callerID, ok := value.(int64)
	return callerID, ok
}
