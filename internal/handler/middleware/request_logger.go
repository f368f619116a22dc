package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sentinelstack/apigateway/internal/domain/audit"
	"github.com/sentinelstack/apigateway/internal/tasks"
	"go.uber.org/zap"
)

var auditSkipPaths = []string{"/healthz", "/metrics"}

// RequestLogger records every processed request to the audit sink after
// the response is written. Enqueueing is fire-and-forget: sink failures
// never influence the request outcome.
func RequestLogger(client *asynq.Client, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("RequestLogger")
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range auditSkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		start := time.Now()
		c.Next()

		rec := &audit.RequestRecord{
			RequestID:      uuid.New(),
			Method:         c.Request.Method,
			Path:           path,
			StatusCode:     c.Writer.Status(),
			ResponseTimeMs: time.Since(start).Milliseconds(),
			RequestBytes:   c.Request.ContentLength,
			ResponseBytes:  int64(c.Writer.Size()),
			IPAddress:      c.ClientIP(),
			UserAgent:      c.Request.UserAgent(),
		}
		if callerID, ok := GetCallerID(c); ok {
			rec.OwnerID = &callerID
		}

		go func() {
			task, err := tasks.NewRequestRecordTask(rec)
			if err != nil {
				log.Warn("Failed to build request record task", zap.Error(err))
				return
			}
			if _, err := client.Enqueue(task, asynq.Queue("low"), asynq.Timeout(30*time.Second)); err != nil {
				log.Warn("Failed to enqueue request record", zap.Error(err))
			}
		}()
	}
}
