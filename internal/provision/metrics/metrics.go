package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the provisioning module.
type Metrics struct {
	Provisioned       *prometheus.CounterVec
	PartialFailures   prometheus.Counter
	Resets            prometheus.Counter
	BatchRows         *prometheus.CounterVec
	ProvisionDuration prometheus.Histogram
}

// New creates a Metrics instance with all provisioning metrics registered.
func New() *Metrics {
	return &Metrics{
		Provisioned: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rollbook_identities_provisioned_total",
			Help: "Total number of identities provisioned, by role",
		}, []string{"role"}),
		PartialFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollbook_partial_provisioning_total",
			Help: "Total number of provisioning attempts that left an orphaned credential",
		}),
		Resets: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollbook_credential_resets_total",
			Help: "Total number of credential resets",
		}),
		BatchRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rollbook_batch_rows_total",
			Help: "Total number of batch rows processed, by outcome status",
		}, []string{"status"}),
		ProvisionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rollbook_provision_duration_seconds",
			Help:    "Duration of single Provision operations including external calls",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// IncrementProvisioned records a successful provision for a role.
// All helpers are nil-safe so the service works without metrics wiring.
func (m *Metrics) IncrementProvisioned(role string) {
	if m == nil {
		return
	}
	m.Provisioned.WithLabelValues(role).Inc()
}

// IncrementPartialFailure records an uncompensated residual failure.
func (m *Metrics) IncrementPartialFailure() {
	if m == nil {
		return
	}
	m.PartialFailures.Inc()
}

// IncrementReset records a credential reset.
func (m *Metrics) IncrementReset() {
	if m == nil {
		return
	}
	m.Resets.Inc()
}

// IncrementBatchRow records one processed batch row.
func (m *Metrics) IncrementBatchRow(status string) {
	if m == nil {
		return
	}
	m.BatchRows.WithLabelValues(status).Inc()
}

// ObserveProvision records the duration of a Provision operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveProvision(start time.Time) {
	if m == nil {
		return
	}
	m.ProvisionDuration.Observe(time.Since(start).Seconds())
}
