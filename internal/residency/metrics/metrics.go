package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the residency module.
// Tracks lifecycle operation outcomes and saga durations.
type Metrics struct {
	OperationsCompleted *prometheus.CounterVec
	Conflicts           prometheus.Counter
	PartialFailures     prometheus.Counter
	Repairs             prometheus.Counter
	AuditDropped        prometheus.Counter
	SagaDuration        prometheus.Histogram
}

// New creates a new Metrics instance with all residency module metrics registered.
func New() *Metrics {
	return &Metrics{
		OperationsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domio_lifecycle_operations_total",
			Help: "Completed lifecycle operations by name",
		}, []string{"operation"}),
		Conflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domio_lifecycle_conflicts_total",
			Help: "Lifecycle operations rejected due to lock contention",
		}),
		PartialFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domio_lifecycle_partial_failures_total",
			Help: "Sagas that committed some but not all steps",
		}),
		Repairs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domio_lifecycle_repairs_total",
			Help: "Successful repair passes over dangling occupancies",
		}),
		AuditDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domio_audit_entries_dropped_total",
			Help: "Audit entries that could not be persisted",
		}),
		SagaDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "domio_lifecycle_saga_duration_seconds",
			Help:    "Duration of multi-step lifecycle operations",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementOperation records a completed lifecycle operation.
func (m *Metrics) IncrementOperation(operation string) {
	m.OperationsCompleted.WithLabelValues(operation).Inc()
}

// IncrementConflict records a fail-fast lock contention.
func (m *Metrics) IncrementConflict() {
	m.Conflicts.Inc()
}

// IncrementPartialFailure records a saga that did not reach its final state.
func (m *Metrics) IncrementPartialFailure() {
	m.PartialFailures.Inc()
}

// IncrementRepair records a successful repair pass.
func (m *Metrics) IncrementRepair() {
	m.Repairs.Inc()
}

// IncrementAuditDropped records an audit entry that could not be persisted.
func (m *Metrics) IncrementAuditDropped() {
	m.AuditDropped.Inc()
}

// ObserveSaga records the duration of a lifecycle operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSaga(start time.Time) {
	m.SagaDuration.Observe(time.Since(start).Seconds())
}
