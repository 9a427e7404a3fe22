package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the reserve ledger.
type Metrics struct {
	EntriesRegistered     *prometheus.CounterVec
	RegistrationsRejected *prometheus.CounterVec
	ReserveRatio          prometheus.Gauge
	AvailableReserves     prometheus.Gauge
	ThresholdBreaches     prometheus.Counter
	ProofsGenerated       prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EntriesRegistered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_reserve_entries_registered_total",
			Help: "Reserve entries registered, by direction",
		}, []string{"direction"}),
		RegistrationsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_reserve_registrations_rejected_total",
			Help: "Reserve registrations rejected, by reason",
		}, []string{"reason"}),
		ReserveRatio: factory.NewGauge(prometheus.GaugeOpts{
			Name: "custody_reserve_ratio",
			Help: "Confirmed reserves divided by outstanding token supply",
		}),
		AvailableReserves: factory.NewGauge(prometheus.GaugeOpts{
			Name: "custody_reserve_available_satoshis",
			Help: "Confirmed reserves currently in custody",
		}),
		ThresholdBreaches: factory.NewCounter(prometheus.CounterOpts{
			Name: "custody_reserve_threshold_breaches_total",
			Help: "Times the reserve ratio was observed below the configured minimum",
		}),
		ProofsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "custody_reserve_proofs_generated_total",
			Help: "Proof-of-reserves snapshots generated",
		}),
	}
}

func (m *Metrics) IncRegistered(direction string) {
	if m != nil {
		m.EntriesRegistered.WithLabelValues(direction).Inc()
	}
}

func (m *Metrics) IncRejected(reason string) {
	if m != nil {
		m.RegistrationsRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) SetRatio(ratio float64, available int64) {
	if m != nil {
		m.ReserveRatio.Set(ratio)
		m.AvailableReserves.Set(float64(available))
	}
}

func (m *Metrics) IncThresholdBreach() {
	if m != nil {
		m.ThresholdBreaches.Inc()
	}
}

func (m *Metrics) IncProofs() {
	if m != nil {
		m.ProofsGenerated.Inc()
	}
}
