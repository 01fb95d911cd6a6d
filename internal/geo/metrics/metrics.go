package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics provides observability for positioning.
type Metrics struct {
	// Positioning requests by outcome (success, permission_denied, unavailable, timeout)
	Requests *prometheus.CounterVec

	// Samples that survived per sampling run
	SampleCount prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_geo_requests_total",
			Help: "Positioning requests by outcome",
		}, []string{"outcome"}),
		SampleCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "attendance_geo_samples",
			Help:    "Successful samples per sampling run",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.SampleCount)
	}
	return m
}

func (m *Metrics) IncrementRequest(outcome string) {
	if m != nil {
		m.Requests.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveSamples(n int) {
	if m != nil {
		m.SampleCount.Observe(float64(n))
	}
}
