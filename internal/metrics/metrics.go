// Package metrics 定义推荐服务暴露给 Prometheus 的指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"status"}, // "ok", "not_found", "malformed", "error"
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_duration_seconds",
			Help:    "Recommendation pipeline duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ExplanationResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explanation_results_total",
			Help: "Explanation generation outcomes",
		},
		[]string{"kind"}, // "ok", "empty_response", "call_failure", "not_configured"
	)

	// ExplanationBreakerState 0=closed, 1=half-open, 2=open
	ExplanationBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "explanation_breaker_state",
			Help: "Circuit breaker state of the explanation generator",
		},
	)

	CatalogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_size",
			Help: "Number of products in the last catalog snapshot",
		},
	)
)
