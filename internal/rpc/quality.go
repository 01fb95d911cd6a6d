package rpc

import (
	"sync"
	"time"

	"attendance/internal/rpc/metrics"
)

// Quality is the coarse network health shown to the UI collaborator.
type Quality string

const (
	QualityGood    Quality = "good"
	QualityMedium  Quality = "medium"
	QualityPoor    Quality = "poor"
	QualityOffline Quality = "offline"
)

var allQualities = []string{string(QualityGood), string(QualityMedium), string(QualityPoor), string(QualityOffline)}

const (
	qualityWindow = 10

	goodLatency   = 2 * time.Second
	goodRate      = 0.90
	mediumLatency = 5 * time.Second
	mediumRate    = 0.80
)

// QualityObserver is notified whenever the quality bucket changes.
type QualityObserver func(Quality)

// OnlineCheck reports whether the device believes it has connectivity.
type OnlineCheck func() bool

type callSample struct {
	latency time.Duration
	ok      bool
}

// Monitor keeps a rolling window of the last ten calls.
type Monitor struct {
	mu       sync.Mutex
	samples  []callSample
	online   OnlineCheck
	observer QualityObserver
	metrics  *metrics.Metrics
	last     Quality
}

type MonitorOption func(*Monitor)

func WithOnlineCheck(check OnlineCheck) MonitorOption {
	return func(m *Monitor) {
		m.online = check
	}
}

func WithQualityObserver(observer QualityObserver) MonitorOption {
	return func(m *Monitor) {
		m.observer = observer
	}
}

func WithMonitorMetrics(mt *metrics.Metrics) MonitorOption {
	return func(m *Monitor) {
		m.metrics = mt
	}
}

func NewMonitor(opts ...MonitorOption) *Monitor {
	m := &Monitor{last: QualityGood}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Record adds one call outcome and notifies the observer on a bucket change.
func (m *Monitor) Record(latency time.Duration, ok bool) {
	m.mu.Lock()
	m.samples = append(m.samples, callSample{latency: latency, ok: ok})
	if len(m.samples) > qualityWindow {
		m.samples = m.samples[len(m.samples)-qualityWindow:]
	}
	q := m.assessLocked()
	changed := q != m.last
	m.last = q
	observer := m.observer
	m.mu.Unlock()

	m.metrics.SetQuality(string(q), allQualities)
	if changed && observer != nil {
		observer(q)
	}
}

// Quality returns the current bucket.
func (m *Monitor) Quality() Quality {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assessLocked()
}

func (m *Monitor) assessLocked() Quality {
	if m.online != nil && !m.online() {
		return QualityOffline
	}
	if len(m.samples) == 0 {
		return QualityGood
	}

	var total time.Duration
	okCount := 0
	for _, s := range m.samples {
		total += s.latency
		if s.ok {
			okCount++
		}
	}
	avg := total / time.Duration(len(m.samples))
	rate := float64(okCount) / float64(len(m.samples))

	switch {
	case avg < goodLatency && rate > goodRate:
		return QualityGood
	case avg < mediumLatency && rate > mediumRate:
		return QualityMedium
	default:
		return QualityPoor
	}
}
