package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sentinelstack/apigateway/internal/metrics"
	"github.com/sentinelstack/apigateway/internal/service"
	"go.uber.org/zap"
)

// Outcome is the decision a gate stage hands to the next one.
type Outcome int

const (
	// OutcomeUndecided lets evaluation continue with the next stage.
	OutcomeUndecided Outcome = iota
	// OutcomeAllow admits the request, skipping remaining stages.
	OutcomeAllow
	// OutcomeDenyRateLimited rejects the request with 429.
	OutcomeDenyRateLimited
)

// Stage is one admission step: a function of the request and the prior
// stage's outcome.
type Stage struct {
	Name     string
	Evaluate func(c *gin.Context, prior Outcome) Outcome
}

// AdmissionGate orchestrates the per-request admission decision as an
// explicit, ordered list of stages: exempt-path check first, then the
// rate limiter for authenticated callers. Relying on an explicit list
// keeps the ordering contract out of the router's hands.
type AdmissionGate struct {
	stages []Stage
	logger *zap.Logger
}

func NewAdmissionGate(limiter *service.RateLimitService, exemptPaths []string, logger *zap.Logger) *AdmissionGate {
	g := &AdmissionGate{logger: logger.Named("AdmissionGate")}
	g.stages = []Stage{
		{Name: "exempt-path", Evaluate: exemptPathStage(exemptPaths)},
		{Name: "rate-limit", Evaluate: rateLimitStage(limiter)},
	}
	return g
}

// Handler runs the stages in order. The first Allow or Deny outcome is
// terminal; a fully undecided walk admits the request.
func (g *AdmissionGate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		outcome := OutcomeUndecided
		for _, stage := range g.stages {
			outcome = stage.Evaluate(c, outcome)
			if outcome != OutcomeUndecided {
				break
			}
		}

		if outcome == OutcomeDenyRateLimited {
			callerID, _ := GetCallerID(c)
			g.logger.Info("Request denied by rate limiter",
				zap.Int64("caller_id", callerID),
				zap.String("path", c.Request.URL.Path),
			)
			metrics.AdmissionDecisions.WithLabelValues(metrics.DecisionRateLimited).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests. Please try again later.",
			})
			return
		}

		metrics.AdmissionDecisions.WithLabelValues(metrics.DecisionAllowed).Inc()
		c.Next()
	}
}

func exemptPathStage(exemptPaths []string) func(*gin.Context, Outcome) Outcome {
	return func(c *gin.Context, prior Outcome) Outcome {
		path := c.Request.URL.Path
		for _, exempt := range exemptPaths {
			if strings.HasPrefix(path, exempt) {
				return OutcomeAllow
			}
		}
		return prior
	}
}

// rateLimitStage consults the limiter only for authenticated callers.
// Unauthenticated requests pass through undecided: downstream
// authorization rejects them and no counters are touched.
func rateLimitStage(limiter *service.RateLimitService) func(*gin.Context, Outcome) Outcome {
	return func(c *gin.Context, prior Outcome) Outcome {
		callerID, ok := GetCallerID(c)
		if !ok {
			return prior
		}
		if limiter.IsExceeded(c.Request.Context(), callerID) {
			return OutcomeDenyRateLimited
		}
		return prior
	}
}
