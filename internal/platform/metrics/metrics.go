package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine-level instruments: operation outcomes and
// latency, plus the audit append counter. All methods are nil-safe so
// services can run without a registry in tests.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	AuditEntries      *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Operations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hrengine_operations_total",
			Help: "Total engine operations by name and result.",
		}, []string{"operation", "result"}),
		OperationDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hrengine_operation_duration_seconds",
			Help:    "Duration of engine operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		AuditEntries: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hrengine_audit_entries_total",
			Help: "Audit trail entries appended, by result.",
		}, []string{"result"}),
	}
}

// ObserveOp records one operation outcome and its duration.
func (m *Metrics) ObserveOp(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.Operations.WithLabelValues(operation, result).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// CountAudit records one appended audit entry.
func (m *Metrics) CountAudit(result string) {
	if m == nil {
		return
	}
	m.AuditEntries.WithLabelValues(result).Inc()
}
