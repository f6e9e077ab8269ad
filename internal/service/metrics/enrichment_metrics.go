package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	RiskSourceResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signalrelay",
			Subsystem: "risk",
			Name:      "source_results_total",
			Help:      "Calendar source lookups by source and result",
		},
		[]string{"source", "result"},
	)

	LLMLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "signalrelay",
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "Latency of LLM generate calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"operation"},
	)

	LLMFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signalrelay",
			Subsystem: "llm",
			Name:      "failures_total",
			Help:      "Failed LLM attempts by operation",
		},
		[]string{"operation"},
	)

	LLMFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signalrelay",
			Subsystem: "llm",
			Name:      "fallbacks_total",
			Help:      "Narratives served from the deterministic fallback",
		},
		[]string{"operation"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(RiskSourceResults, LLMLatency, LLMFailures, LLMFallbacks)
	})
}
