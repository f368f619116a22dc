package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sentinelstack/apigateway/internal/domain/quota"
	"github.com/sentinelstack/apigateway/internal/service"
	"github.com/sentinelstack/apigateway/internal/storage/memstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newGateRouter(t *testing.T, callerID *int64, perMinute int) (*gin.Engine, *memstorage.CounterStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	policies := memstorage.NewQuotaPolicyStore()
	counter := memstorage.NewCounterStore(nil)
	limiter := service.NewRateLimitService(policies, counter, zap.NewNop())

	if perMinute > 0 {
		_, err := limiter.SavePolicy(context.Background(), &quota.Policy{
			OwnerID:   1,
			PerMinute: &perMinute,
		})
		require.NoError(t, err)
	}

	gate := NewAdmissionGate(limiter, []string{"/api/auth/login", "/healthz"}, zap.NewNop())

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if callerID != nil {
			c.Set(callerContextKey, *callerID)
		}
		c.Next()
	})
	router.Use(gate.Handler())
	router.GET("/api/data", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	return router, counter
}

func doGet(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestAdmissionGate_AllowsWithinBudget(t *testing.T) {
	callerID := int64(1)
	router, _ := newGateRouter(t, &callerID, 2)

	assert.Equal(t, http.StatusOK, doGet(router, "/api/data").Code)
	assert.Equal(t, http.StatusOK, doGet(router, "/api/data").Code)
}

func TestAdmissionGate_DeniesWithExactBody(t *testing.T) {
	callerID := int64(1)
	router, _ := newGateRouter(t, &callerID, 1)

	require.Equal(t, http.StatusOK, doGet(router, "/api/data").Code)

	w := doGet(router, "/api/data")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"Rate limit exceeded","message":"Too many requests. Please try again later."}`, w.Body.String())
}

func TestAdmissionGate_ExemptPathBypassesLimiter(t *testing.T) {
	callerID := int64(1)
	router, counter := newGateRouter(t, &callerID, 1)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doGet(router, "/healthz").Code)
	}
	assert.Equal(t, int64(0), counter.Value(1, quota.WindowMinute))
}

func TestAdmissionGate_UnauthenticatedPassesWithoutCounting(t *testing.T) {
	router, counter := newGateRouter(t, nil, 1)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doGet(router, "/api/data").Code)
	}
	assert.Equal(t, int64(0), counter.Value(1, quota.WindowMinute))
}
