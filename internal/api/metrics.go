package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/stewardhq/steward/internal/agent"
)

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steward",
		Name:      "turns_total",
		Help:      "Completed chat turns by model.",
	}, []string{"model"})

	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "steward",
		Name:      "turn_duration_seconds",
		Help:      "Wall-clock duration of completed turns.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	})

	toolCallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "steward",
		Name:      "tool_calls_total",
		Help:      "Tool invocations dispatched across all turns.",
	})

	providerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "steward",
		Name:      "provider_errors_total",
		Help:      "Turns that failed with a provider error.",
	})
)

func observeTurn(turn *agent.Turn, elapsed time.Duration) {
	turnsTotal.WithLabelValues(turn.Model).Inc()
	turnDuration.Observe(elapsed.Seconds())
	toolCallsTotal.Add(float64(turn.ToolCalls))
}
