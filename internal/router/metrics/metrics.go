package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for router workflows.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	PendingSteps      *prometheus.CounterVec
	ExpiredOperations prometheus.Counter
	ModuleCalls       *prometheus.CounterVec
	BreakerOpen       *prometheus.GaugeVec
	Paused            prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_router_operations_total",
			Help: "Router operations finished, by kind and final status",
		}, []string{"kind", "status"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "custody_router_operation_duration_seconds",
			Help:    "Duration of router workflows",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind"}),
		PendingSteps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_router_pending_steps_total",
			Help: "Operations left with a pending step, by step",
		}, []string{"step"}),
		ExpiredOperations: factory.NewCounter(prometheus.CounterOpts{
			Name: "custody_router_expired_operations_total",
			Help: "Operations failed by the stale-operation watchdog",
		}),
		ModuleCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_router_module_calls_total",
			Help: "Guarded cross-module calls, by module and result",
		}, []string{"module", "result"}),
		BreakerOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "custody_router_circuit_open",
			Help: "1 while the module's circuit breaker is open",
		}, []string{"module"}),
		Paused: factory.NewGauge(prometheus.GaugeOpts{
			Name: "custody_router_paused",
			Help: "1 while the emergency pause is active",
		}),
	}
}

func (m *Metrics) ObserveOperation(kind, status string, d time.Duration) {
	if m != nil {
		m.Operations.WithLabelValues(kind, status).Inc()
		m.OperationDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
}

func (m *Metrics) IncPendingStep(step string) {
	if m != nil {
		m.PendingSteps.WithLabelValues(step).Inc()
	}
}

func (m *Metrics) IncExpired() {
	if m != nil {
		m.ExpiredOperations.Inc()
	}
}

func (m *Metrics) IncModuleCall(module, result string) {
	if m != nil {
		m.ModuleCalls.WithLabelValues(module, result).Inc()
	}
}

func (m *Metrics) SetBreakerOpen(module string, open bool) {
	if m != nil {
		m.BreakerOpen.WithLabelValues(module).Set(boolGauge(open))
	}
}

func (m *Metrics) SetPaused(paused bool) {
	if m != nil {
		m.Paused.Set(boolGauge(paused))
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
