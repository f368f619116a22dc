package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sentinelstack/apigateway/internal/config"
	"github.com/sentinelstack/apigateway/internal/handler/dto"
	"github.com/sentinelstack/apigateway/internal/handler/middleware"
	"github.com/sentinelstack/apigateway/internal/service"
	"github.com/sentinelstack/apigateway/internal/storage/memstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newKeyRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, err := service.NewAPIKeyService(memstorage.NewAPIKeyStore(), &config.HashingConfig{
		BcryptCost:    bcrypt.MinCost,
		MaxConcurrent: 4,
	}, zap.NewNop())
	require.NoError(t, err)

	h := NewAPIKeyHandler(svc, zap.NewNop())

	router := gin.New()
	router.Use(middleware.ErrorHandlerMiddleware(zap.NewNop()))
	router.Use(func(c *gin.Context) {
		// Caller identity normally resolved by the auth middleware.
		if owner := c.GetHeader("X-Test-Owner"); owner != "" {
			var ownerID int64
			_, err := fmt.Sscan(owner, &ownerID)
			require.NoError(t, err)
			c.Set("callerID", ownerID)
		}
		c.Next()
	})
	router.POST("/api/keys", h.Create)
	router.GET("/api/keys", h.List)
	router.DELETE("/api/keys/:id", h.Revoke)

	return router
}

func doJSON(router *gin.Engine, method, path, owner string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set("X-Test-Owner", owner)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAPIKeyHandler_CreateListRevoke(t *testing.T) {
	router := newKeyRouter(t)

	w := doJSON(router, http.MethodPost, "/api/keys", "1", gin.H{"name": "ci"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created dto.CreateAPIKeyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.FullKey)
	assert.Equal(t, "ci", created.Name)

	w = doJSON(router, http.MethodGet, "/api/keys", "1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), created.FullKey)
	assert.NotContains(t, w.Body.String(), "fullKey")

	w = doJSON(router, http.MethodDelete, fmt.Sprintf("/api/keys/%d", created.ID), "1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAPIKeyHandler_CreateValidation(t *testing.T) {
	router := newKeyRouter(t)

	w := doJSON(router, http.MethodPost, "/api/keys", "1", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/api/keys", "1", gin.H{"name": "x", "perMinute": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPIKeyHandler_RevokeErrors(t *testing.T) {
	router := newKeyRouter(t)

	w := doJSON(router, http.MethodPost, "/api/keys", "1", gin.H{"name": "ci"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created dto.CreateAPIKeyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	t.Run("not owner", func(t *testing.T) {
		w := doJSON(router, http.MethodDelete, fmt.Sprintf("/api/keys/%d", created.ID), "2", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing", func(t *testing.T) {
		w := doJSON(router, http.MethodDelete, "/api/keys/9999", "1", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		w := doJSON(router, http.MethodDelete, "/api/keys/abc", "1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
