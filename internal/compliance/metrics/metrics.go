package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for exchange limit enforcement.
type Metrics struct {
	LimitChecks   *prometheus.CounterVec
	LimitWarnings prometheus.Counter
	WindowResets  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LimitChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_compliance_limit_checks_total",
			Help: "Exchange limit checks, by result (allowed, rejected)",
		}, []string{"result"}),
		LimitWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "custody_compliance_limit_warnings_total",
			Help: "Usage updates that crossed the warning threshold",
		}),
		WindowResets: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_compliance_window_resets_total",
			Help: "Usage windows reset, by window (daily, monthly)",
		}, []string{"window"}),
	}
}

func (m *Metrics) IncLimitCheck(result string) {
	if m != nil {
		m.LimitChecks.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncLimitWarning() {
	if m != nil {
		m.LimitWarnings.Inc()
	}
}

func (m *Metrics) IncWindowReset(window string) {
	if m != nil {
		m.WindowResets.WithLabelValues(window).Inc()
	}
}
