package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics provides observability for settled attendance actions.
type Metrics struct {
	// Settled actions by action and classification ("" for success)
	Outcomes *prometheus.CounterVec

	// End-to-end action latency, lock held
	Duration *prometheus.HistogramVec

	// Devices bound after a confirmation prompt
	Bindings prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_actions_total",
			Help: "Settled attendance actions by action and classification",
		}, []string{"action", "classification"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attendance_action_duration_seconds",
			Help:    "End-to-end attendance action duration",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"action"}),
		Bindings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_device_bindings_total",
			Help: "Devices bound after the user accepted the prompt",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Outcomes, m.Duration, m.Bindings)
	}
	return m
}

func (m *Metrics) ObserveOutcome(action, classification string, seconds float64) {
	if m == nil {
		return
	}
	if classification == "" {
		classification = "success"
	}
	m.Outcomes.WithLabelValues(action, classification).Inc()
	m.Duration.WithLabelValues(action).Observe(seconds)
}

func (m *Metrics) IncrementBindings() {
	if m != nil {
		m.Bindings.Inc()
	}
}
