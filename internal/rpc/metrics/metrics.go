package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides observability for remote invocations.
type Metrics struct {
	// Invocation outcomes by function and outcome (success, timeout, transport, aborted)
	Invocations *prometheus.CounterVec

	// Per-call latency by function
	Latency *prometheus.HistogramVec

	// Retries scheduled by function
	Retries *prometheus.CounterVec

	// Current network quality bucket, one-hot by quality label
	Quality *prometheus.GaugeVec
}

// New creates the rpc metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_rpc_invocations_total",
			Help: "Remote invocations by function and outcome",
		}, []string{"function", "outcome"}),

		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attendance_rpc_duration_seconds",
			Help:    "Duration of remote invocations",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"function"}),

		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_rpc_retries_total",
			Help: "Retries scheduled after transient failures",
		}, []string{"function"}),

		Quality: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "attendance_network_quality",
			Help: "Current network quality bucket (1 for the active bucket)",
		}, []string{"quality"}),
	}
	if reg != nil {
		reg.MustRegister(m.Invocations, m.Latency, m.Retries, m.Quality)
	}
	return m
}

// ObserveInvocation records the outcome and latency of one call.
func (m *Metrics) ObserveInvocation(function, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Invocations.WithLabelValues(function, outcome).Inc()
	m.Latency.WithLabelValues(function).Observe(d.Seconds())
}

// IncrementRetries counts a scheduled retry.
func (m *Metrics) IncrementRetries(function string) {
	if m != nil {
		m.Retries.WithLabelValues(function).Inc()
	}
}

// SetQuality marks quality as the active bucket.
func (m *Metrics) SetQuality(quality string, all []string) {
	if m == nil {
		return
	}
	for _, q := range all {
		v := 0.0
		if q == quality {
			v = 1
		}
		m.Quality.WithLabelValues(q).Set(v)
	}
}
