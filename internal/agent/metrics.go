package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parley",
		Subsystem: "agent",
		Name:      "turns_total",
		Help:      "Completed turns by stop reason.",
	}, []string{"stop_reason"})

	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "parley",
		Subsystem: "agent",
		Name:      "turn_duration_seconds",
		Help:      "End-to-end turn latency.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	turnSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "parley",
		Subsystem: "agent",
		Name:      "turn_steps",
		Help:      "Reason/act steps consumed per turn.",
		Buckets:   prometheus.LinearBuckets(1, 1, 10),
	})
)
