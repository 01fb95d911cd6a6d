package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics provides observability for the operation gate.
type Metrics struct {
	// Acquire attempts by trigger and result (acquired, busy, cooling)
	Acquisitions *prometheus.CounterVec

	// 1 while an operation holds the lock
	Busy prometheus.Gauge

	// Lock hold time by trigger
	HoldDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_operation_acquisitions_total",
			Help: "Operation lock acquire attempts by trigger and result",
		}, []string{"trigger", "result"}),
		Busy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "attendance_operation_busy",
			Help: "Whether an attendance operation is in progress",
		}),
		HoldDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attendance_operation_duration_seconds",
			Help:    "Time the operation lock was held",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"trigger"}),
	}
	if reg != nil {
		reg.MustRegister(m.Acquisitions, m.Busy, m.HoldDuration)
	}
	return m
}

func (m *Metrics) IncrementAcquisition(trigger, result string) {
	if m != nil {
		m.Acquisitions.WithLabelValues(trigger, result).Inc()
	}
}

func (m *Metrics) SetBusy(busy bool) {
	if m == nil {
		return
	}
	if busy {
		m.Busy.Set(1)
		return
	}
	m.Busy.Set(0)
}

func (m *Metrics) ObserveHold(trigger string, seconds float64) {
	if m != nil {
		m.HoldDuration.WithLabelValues(trigger).Observe(seconds)
	}
}
