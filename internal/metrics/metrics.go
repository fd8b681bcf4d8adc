// Package metrics exposes Prometheus counters for routing, providers, tasks and jobs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steward_provider_calls_total",
			Help: "Provider invocations by outcome (success, failure, rate_limited, skipped)",
		},
		[]string{"provider", "outcome"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "steward_provider_latency_seconds",
			Help: "Provider call latency in seconds",
		},
		[]string{"provider"},
	)

	RoutingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steward_routing_decisions_total",
			Help: "Requests handled, by routing path",
		},
		[]string{"path"},
	)

	DetectorMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steward_detector_matches_total",
			Help: "Intent detector matches by detector name",
		},
		[]string{"detector"},
	)

	TaskTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steward_task_transitions_total",
			Help: "Task state transitions",
		},
		[]string{"from", "to"},
	)

	JobFires = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steward_job_fires_total",
			Help: "Scheduled job fires by outcome",
		},
		[]string{"outcome"},
	)

	ScheduledJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "steward_scheduled_jobs",
			Help: "Number of enabled scheduled jobs",
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
