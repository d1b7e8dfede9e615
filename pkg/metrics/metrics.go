package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderCalls counts remote mail-provider calls by provider, operation
	// (create|list|resolve) and result (ok|conflict|transient|auth|error).
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folderengine_provider_calls_total",
			Help: "Total number of remote mail provider calls",
		},
		[]string{"provider", "operation", "result"},
	)

	// ProviderRetries counts retry attempts issued for transient provider errors.
	ProviderRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folderengine_provider_retries_total",
			Help: "Total number of retried mail provider calls",
		},
		[]string{"provider", "operation"},
	)

	// ProvisionedNodes counts orchestrator node outcomes (created|already_existed|failed).
	ProvisionedNodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folderengine_provisioned_nodes_total",
			Help: "Total number of folder nodes processed by the orchestrator",
		},
		[]string{"provider", "outcome"},
	)

	// ReconcileRuns counts reconciliation passes by result (ok|error).
	ReconcileRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folderengine_reconcile_runs_total",
			Help: "Total number of reconciliation passes",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folderengine_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
