package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics provides observability for device identity resolution.
type Metrics struct {
	// Resolutions by source tier, or "fingerprint"/"random" for new identifiers
	Resolutions *prometheus.CounterVec

	// Tier repairs by tier name
	Repairs *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_device_id_resolutions_total",
			Help: "Device id resolutions by source",
		}, []string{"source"}),
		Repairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_device_id_repairs_total",
			Help: "Storage tiers rewritten to match the adopted device id",
		}, []string{"tier"}),
	}
	if reg != nil {
		reg.MustRegister(m.Resolutions, m.Repairs)
	}
	return m
}

func (m *Metrics) IncrementResolution(source string) {
	if m != nil {
		m.Resolutions.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) IncrementRepair(tier string) {
	if m != nil {
		m.Repairs.WithLabelValues(tier).Inc()
	}
}
