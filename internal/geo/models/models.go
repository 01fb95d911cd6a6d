package models

import "time"

// Position is a raw fix as reported by a positioning provider. Timestamp may
// be in seconds or milliseconds depending on the provider.
type Position struct {
	Lat       float64
	Lng       float64
	Accuracy  float64
	Timestamp int64
}

// Sample is a normalized fix. TimestampMs is always milliseconds since epoch.
type Sample struct {
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	AccuracyMeters float64 `json:"accuracy"`
	TimestampMs    int64   `json:"timestamp"`
	Index          int     `json:"sampleIndex"`
}

// Consensus is the reduced location handed to the backend.
type Consensus struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Accuracy    float64 `json:"accuracy"`
	Confidence  float64 `json:"confidence"`
	SampleCount int     `json:"sampleCount"`
}

// Usable reports whether the consensus carries a real coordinate. The
// zero-sample sentinel must never be submitted.
func (c Consensus) Usable() bool {
	return c.SampleCount > 0 && c.Confidence > 0
}

// secondsCutoff separates second-based timestamps from millisecond ones:
// 1e11 ms is early 1973, 1e11 s is far in the future.
const secondsCutoff = 1e11

// NormalizeTimestamp returns ts in milliseconds, rescaling second-based
// values. A zero timestamp takes now.
func NormalizeTimestamp(ts int64, now time.Time) int64 {
	switch {
	case ts <= 0:
		return now.UnixMilli()
	case ts < secondsCutoff:
		return ts * 1000
	default:
		return ts
	}
}
