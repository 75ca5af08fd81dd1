package metrics

import "github.com/prometheus/client_golang/prometheus"

// Reconciliation Prometheus metrics.
var (
	ReconcileOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "expstore",
			Name:      "reconcile_ops_total",
			Help:      "Total number of per-index reconciliation outcomes",
		},
		[]string{"action"},
	)

	ReconcileFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "expstore",
			Name:      "reconcile_failures_total",
			Help:      "Total reconciliation failures",
		},
		[]string{"reason"}, // "build_failed" / "timeout" / "error"
	)

	ReconcileJobsRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "expstore",
			Name:      "reconcile_jobs_rejected_total",
			Help:      "Reconciliation jobs rejected by the task registry at capacity",
		},
	)

	IndexBuildWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "expstore",
			Name:      "index_build_wait_seconds",
			Help:      "Time spent waiting for asynchronous index builds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
)

var reconcileMetricsRegistered bool

// RegisterReconcileMetrics registers Prometheus reconciliation metrics. Must be called once from main.
func RegisterReconcileMetrics() {
	if reconcileMetricsRegistered {
		return
	}
	prometheus.MustRegister(ReconcileOpsTotal)
	prometheus.MustRegister(ReconcileFailuresTotal)
	prometheus.MustRegister(ReconcileJobsRejectedTotal)
	prometheus.MustRegister(IndexBuildWaitSeconds)
	reconcileMetricsRegistered = true
}
