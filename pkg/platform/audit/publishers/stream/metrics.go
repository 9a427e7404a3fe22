package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for event stream delivery.
type Metrics struct {
	Published       prometheus.Counter
	PublishFailures prometheus.Counter
	BreakerSkips    prometheus.Counter
	Buffered        prometheus.Gauge
	BreakerState    prometheus.Gauge
}

// NewMetrics registers event stream metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounter(prometheus.CounterOpts{
			Name: "custody_event_stream_published_total",
			Help: "Total events delivered to the external stream",
		}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "custody_event_stream_publish_failures_total",
			Help: "Total failed batch deliveries",
		}),
		BreakerSkips: factory.NewCounter(prometheus.CounterOpts{
			Name: "custody_event_stream_breaker_skips_total",
			Help: "Total flushes skipped because the circuit was open",
		}),
		Buffered: factory.NewGauge(prometheus.GaugeOpts{
			Name: "custody_event_stream_buffered",
			Help: "Events waiting for delivery",
		}),
		BreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "custody_event_stream_circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed/healthy, 1=open/unhealthy)",
		}),
	}
}

func (m *Metrics) AddPublished(n int) {
	if m != nil {
		m.Published.Add(float64(n))
	}
}

func (m *Metrics) IncPublishFailures() {
	if m != nil {
		m.PublishFailures.Inc()
	}
}

func (m *Metrics) IncBreakerSkips() {
	if m != nil {
		m.BreakerSkips.Inc()
	}
}

func (m *Metrics) SetBuffered(n int) {
	if m != nil {
		m.Buffered.Set(float64(n))
	}
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
	} else {
		m.BreakerState.Set(0)
	}
}
