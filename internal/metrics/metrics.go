package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors. A fresh instance is
// registered per process; tests pass their own registry.
type Metrics struct {
	SlotsRejected           prometheus.Counter
	CancelOutcomes          *prometheus.CounterVec
	UnverifiedCancellations prometheus.Counter
}

const (
	OutcomeVerified         = "verified"
	OutcomeAlreadyCancelled = "already_cancelled"
	OutcomeUnverified       = "unverified"
)

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SlotsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slots_rejected_total",
			Help: "Availability slots dropped by the opening-hours filter.",
		}),
		CancelOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cancellations_total",
			Help: "Cancellation reconciliations by outcome.",
		}, []string{"outcome"}),
		UnverifiedCancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unverified_cancellations_total",
			Help: "Cancellations recorded locally without remote verification; each needs manual follow-up by office staff.",
		}),
	}

	reg.MustRegister(m.SlotsRejected, m.CancelOutcomes, m.UnverifiedCancellations)
	return m
}
