package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcomes recorded for list and todo operations.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeNotFound = "not_found"
)

// ListMetrics counts list and todo mutations by outcome.
type ListMetrics struct {
	Operations *prometheus.CounterVec
}

func NewListMetrics(reg prometheus.Registerer) *ListMetrics {
	m := &ListMetrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lists",
			Name:      "operations_total",
			Help:      "Total list and todo operations, by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}

	reg.MustRegister(m.Operations)
	return m
}

// Record is safe to call on a nil *ListMetrics.
func (m *ListMetrics) Record(operation, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
}
