package eventbus

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics surfaces the eventual-consistency gaps the bus can produce:
// dropped publishes, dead-lettered messages, degraded mode. Construction and
// registration are split so tests can build instruments without touching the
// default registry.
type Metrics struct {
	published       *prometheus.CounterVec
	publishFailures *prometheus.CounterVec
	deadLetters     *prometheus.CounterVec
	degraded        prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acadia_events_published_total",
			Help: "Events successfully handed to the broker.",
		}, []string{"topic"}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acadia_event_publish_failures_total",
			Help: "Publishes that failed or were dropped in degraded mode.",
		}, []string{"topic"}),
		deadLetters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acadia_event_dead_letters_total",
			Help: "Messages recorded to the dead-letter store.",
		}, []string{"topic"}),
		degraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "acadia_eventbus_degraded",
			Help: "1 when the service runs without a broker connection.",
		}),
	}
}

// Register attaches the instruments to a registry, once per process.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.published, m.publishFailures, m.deadLetters, m.degraded} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) recordPublished(topic string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(topic).Inc()
}

func (m *Metrics) recordPublishFailure(topic string) {
	if m == nil {
		return
	}
	m.publishFailures.WithLabelValues(topic).Inc()
}

func (m *Metrics) recordDeadLetter(topic string) {
	if m == nil {
		return
	}
	m.deadLetters.WithLabelValues(topic).Inc()
}

func (m *Metrics) setDegraded(on bool) {
	if m == nil {
		return
	}
	if on {
		m.degraded.Set(1)
		return
	}
	m.degraded.Set(0)
}
