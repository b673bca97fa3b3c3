package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileMetrics are prometheus instruments for reconciliation runs,
// exposed on /metrics alongside the OTLP push pipeline.
type ReconcileMetrics struct {
	runDuration *prometheus.HistogramVec
	runTotal    *prometheus.CounterVec
	rowsWritten prometheus.Counter
	queueDepth  prometheus.Gauge
}

var (
	reconcileOnce     sync.Once
	reconcileInstance *ReconcileMetrics
)

// NewReconcileMetrics registers the reconcile instruments on the default
// registry. Safe to call more than once.
func NewReconcileMetrics() *ReconcileMetrics {
	reconcileOnce.Do(func() {
		m := &ReconcileMetrics{
			runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "sitebill_reconcile_run_duration_seconds",
				Help:    "Duration of reconciliation runs.",
				Buckets: prometheus.DefBuckets,
			}, []string{"scope"}),
			runTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "sitebill_reconcile_run_total",
				Help: "Reconciliation runs by scope and outcome.",
			}, []string{"scope", "outcome"}),
			rowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "sitebill_reconcile_snapshot_rows_total",
				Help: "Snapshot rows written by reconciliation.",
			}),
			queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "sitebill_reconcile_queue_depth",
				Help: "Pending tasks in the reconcile dispatcher queue.",
			}),
		}
		prometheus.MustRegister(m.runDuration, m.runTotal, m.rowsWritten, m.queueDepth)
		reconcileInstance = m
	})
	return reconcileInstance
}

func (m *ReconcileMetrics) ObserveRun(scope string, outcome string, elapsed time.Duration, rows int) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(scope).Observe(elapsed.Seconds())
	m.runTotal.WithLabelValues(scope, outcome).Inc()
	if rows > 0 {
		m.rowsWritten.Add(float64(rows))
	}
}

func (m *ReconcileMetrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}
