package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parley",
		Subsystem: "llm",
		Name:      "requests_total",
		Help:      "Model invocations by model and outcome.",
	}, []string{"model", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "parley",
		Subsystem: "llm",
		Name:      "request_duration_seconds",
		Help:      "Model invocation latency.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"model"})

	tokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parley",
		Subsystem: "llm",
		Name:      "tokens_total",
		Help:      "Tokens consumed by direction.",
	}, []string{"model", "direction"})
)
