package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	httpDurationHistogram    *prometheus.HistogramVec
	workflowTransitionCount  *prometheus.CounterVec
	duplicateDecisionCounter prometheus.Counter
	snapshotFailureCounter   prometheus.Counter
	notificationCounter      *prometheus.CounterVec
	stalePendingGauge        prometheus.Gauge
	workerRunCounter         *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		workflowTransitionCount = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "Sale and withdrawal workflow transitions by stage and outcome",
		}, []string{"stage", "outcome"})

		duplicateDecisionCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "workflow_duplicate_decisions_total",
			Help: "Operator decisions ignored because the sale record was already terminal",
		})

		snapshotFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_snapshot_failures_total",
			Help: "Ledger snapshot writes that failed and were retained in memory only",
		})

		notificationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification delivery outcomes",
		}, []string{"result"})

		stalePendingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sale_requests_stale_pending",
			Help: "Sale requests waiting on the operator beyond the stale threshold",
		})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			workflowTransitionCount,
			duplicateDecisionCounter,
			snapshotFailureCounter,
			notificationCounter,
			stalePendingGauge,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementWorkflowTransition(stage, outcome string) {
	if workflowTransitionCount == nil {
		return
	}
	workflowTransitionCount.WithLabelValues(stage, outcome).Inc()
}

func IncrementDuplicateDecision() {
	if duplicateDecisionCounter == nil {
		return
	}
	duplicateDecisionCounter.Inc()
}

func IncrementSnapshotFailure() {
	if snapshotFailureCounter == nil {
		return
	}
	snapshotFailureCounter.Inc()
}

func IncrementNotification(result string) {
	if notificationCounter == nil {
		return
	}
	notificationCounter.WithLabelValues(result).Inc()
}

func SetStalePending(count int) {
	if stalePendingGauge == nil {
		return
	}
	stalePendingGauge.Set(float64(count))
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
