// Package metrics holds the Prometheus collectors for locality and cart
// eligibility. Every method is safe on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Locality evaluations by source and reason
	Evaluations *prometheus.CounterVec

	// Gate outcomes by product mode and availability
	GateDecisions *prometheus.CounterVec

	// Signal lookup latency by signal ("product", "address", "override")
	LookupLatency *prometheus.HistogramVec

	// Lines removed by the reconciler, by trigger
	ReconcileRemoved *prometheus.CounterVec

	// Failed reconciler runs
	ReconcileErrors prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "localcart_locality_evaluations_total",
			Help: "Locality evaluations by deciding source and reason",
		}, []string{"source", "reason"}),

		GateDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "localcart_cart_gate_decisions_total",
			Help: "Cart gate decisions by product mode and availability",
		}, []string{"product_mode", "availability"}),

		LookupLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "localcart_signal_lookup_duration_seconds",
			Help:    "Duration of product and locality signal lookups",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"signal"}),

		ReconcileRemoved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "localcart_reconcile_removed_lines_total",
			Help: "Cart lines removed because locality no longer allowed them",
		}, []string{"trigger"}),

		ReconcileErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "localcart_reconcile_errors_total",
			Help: "Reconciler runs that stopped on an error",
		}),
	}
}

func (m *Metrics) IncEvaluation(source, reason string) {
	if m != nil {
		m.Evaluations.WithLabelValues(source, reason).Inc()
	}
}

func (m *Metrics) IncGateDecision(productMode, availability string) {
	if m != nil {
		m.GateDecisions.WithLabelValues(productMode, availability).Inc()
	}
}

func (m *Metrics) ObserveLookup(signal string, d time.Duration) {
	if m != nil {
		m.LookupLatency.WithLabelValues(signal).Observe(d.Seconds())
	}
}

func (m *Metrics) AddReconcileRemoved(trigger string, n int) {
	if m != nil && n > 0 {
		m.ReconcileRemoved.WithLabelValues(trigger).Add(float64(n))
	}
}

func (m *Metrics) IncReconcileError() {
	if m != nil {
		m.ReconcileErrors.Inc()
	}
}
