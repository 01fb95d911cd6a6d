package geo

import "attendance/internal/geo/models"

const (
	highConfidence = 0.8
	lowConfidence  = 0.6
	highSampleMin  = 3
)

// Consolidate averages latitude, longitude and accuracy over every sample.
// An empty set yields the zero-confidence sentinel.
func Consolidate(samples []models.Sample) models.Consensus {
	n := len(samples)
	if n == 0 {
		return models.Consensus{}
	}

	var lat, lng, acc float64
	for _, s := range samples {
		lat += s.Lat
		lng += s.Lng
		acc += s.AccuracyMeters
	}
	count := float64(n)

	return models.Consensus{
		Lat:         lat / count,
		Lng:         lng / count,
		Accuracy:    acc / count,
		Confidence:  Confidence(n),
		SampleCount: n,
	}
}

// Confidence is non-decreasing in sampleCount.
func Confidence(sampleCount int) float64 {
	switch {
	case sampleCount >= highSampleMin:
		return highConfidence
	case sampleCount >= 1:
		return lowConfidence
	default:
		return 0
	}
}
