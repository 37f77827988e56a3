package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "docprobe"

type promMetrics struct {
	probeTotal    *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec
	backendUp     *prometheus.GaugeVec
}

func newPromMetrics(reg prometheus.Registerer) *promMetrics {
	m := &promMetrics{
		probeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_total",
			Help:      "Backend probes by endpoint and outcome class",
		}, []string{"endpoint", "outcome"}),

		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Backend probe round trip in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),

		backendUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_up",
			Help:      "1 when the last probe found the backend answering",
		}, []string{"endpoint"}),
	}

	reg.MustRegister(m.probeTotal, m.probeDuration, m.backendUp)

	return m
}

func (m *promMetrics) observeProbe(event Event) {
	m.probeTotal.WithLabelValues(event.Endpoint, event.Outcome).Inc()
	m.probeDuration.WithLabelValues(event.Endpoint).Observe(event.Duration.Seconds())
}

func (m *promMetrics) setUp(endpoint string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1
	}
	m.backendUp.WithLabelValues(endpoint).Set(value)
}
