package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the token ledgers.
type Metrics struct {
	Movements         *prometheus.CounterVec
	TransfersRejected *prometheus.CounterVec
	Supply            *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Movements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_token_movements_total",
			Help: "Journal movements applied, by symbol and kind",
		}, []string{"symbol", "kind"}),
		TransfersRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_token_transfers_rejected_total",
			Help: "Transfers rejected by the KYC gate or balance checks, by symbol",
		}, []string{"symbol"}),
		Supply: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "custody_token_supply",
			Help: "Outstanding supply in base units, by symbol",
		}, []string{"symbol"}),
	}
}

func (m *Metrics) IncMovement(symbol, kind string) {
	if m != nil {
		m.Movements.WithLabelValues(symbol, kind).Inc()
	}
}

func (m *Metrics) IncTransferRejected(symbol string) {
	if m != nil {
		m.TransfersRejected.WithLabelValues(symbol).Inc()
	}
}

func (m *Metrics) SetSupply(symbol string, supply int64) {
	if m != nil {
		m.Supply.WithLabelValues(symbol).Set(float64(supply))
	}
}
