package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AdmissionDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apigateway",
		Name:      "admission_decisions_total",
		Help:      "Admission gate outcomes by decision.",
	}, []string{"decision"})

	KeyValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apigateway",
		Name:      "key_validations_total",
		Help:      "API key validation attempts by result.",
	}, []string{"result"})

	CounterStoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "apigateway",
		Name:      "counter_store_errors_total",
		Help:      "Rate-limit counter store failures (requests admitted fail-open).",
	})
)

const (
	DecisionAllowed     = "allowed"
	DecisionRateLimited = "rate_limited"

	ResultMatched  = "matched"
	ResultNoMatch  = "no_match"
	ResultInactive = "inactive"
)
