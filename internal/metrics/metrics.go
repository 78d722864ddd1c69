// Package metrics holds the Prometheus collectors of the adaptive engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adaptive",
		Name:      "sessions_started_total",
		Help:      "Sessions started, labelled by whether an active session was resumed.",
	}, []string{"resumed"})

	SessionsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adaptive",
		Name:      "sessions_completed_total",
		Help:      "Sessions completed, labelled by the stopping rule that fired.",
	}, []string{"reason"})

	AnswersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adaptive",
		Name:      "answers_submitted_total",
		Help:      "Answers recorded, labelled by correctness.",
	}, []string{"correct"})

	AbilityEstimates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adaptive",
		Name:      "ability_estimates_total",
		Help:      "Ability estimations, labelled by how the Newton-Raphson loop ended.",
	}, []string{"outcome"})

	EstimateIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "adaptive",
		Name:      "ability_estimate_iterations",
		Help:      "Newton-Raphson iterations per ability estimate.",
		Buckets:   prometheus.LinearBuckets(0, 2, 11),
	})

	PoolCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adaptive",
		Name:      "pool_cache_lookups_total",
		Help:      "Question pool cache lookups, labelled hit or miss.",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "adaptive",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// BoolLabel renders a bool as a metric label value.
func BoolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
