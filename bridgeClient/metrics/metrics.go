// Package metrics exposes Prometheus counters for bridge transfers.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	transfers        *prometheus.CounterVec
	stateTransitions *prometheus.CounterVec
	confirmationWait *prometheus.HistogramVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := Metrics{
		transfers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridged_transfers_total",
				Help: "Number of transfers that reached a terminal state",
			},
			[]string{"kind", "outcome"},
		),
		stateTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridged_state_transitions_total",
				Help: "Number of orchestrator state transitions",
			},
			[]string{"kind", "state"},
		),
		confirmationWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridged_confirmation_wait_seconds",
				Help:    "Time spent waiting for on-chain confirmations",
				Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300, 600},
			},
			[]string{"kind", "stage"},
		),
	}

	registerer.MustRegister(m.transfers)
	registerer.MustRegister(m.stateTransitions)
	registerer.MustRegister(m.confirmationWait)

	return &m
}

// ObserveTransition counts one entry into state.
func (m *Metrics) ObserveTransition(kind, state string) {
	if m == nil {
		return
	}
	m.stateTransitions.WithLabelValues(kind, state).Inc()
}

// ObserveOutcome counts a finished transfer; outcome is "completed" or an error code.
func (m *Metrics) ObserveOutcome(kind, outcome string) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(kind, outcome).Inc()
}

// ObserveConfirmationWait records how long stage blocked on the chain.
func (m *Metrics) ObserveConfirmationWait(kind, stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.confirmationWait.WithLabelValues(kind, stage).Observe(d.Seconds())
}
