package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	geomodels "attendance/internal/geo/models"
)

func TestValidCode(t *testing.T) {
	for _, code := range []string{"1234", "0000", "9876"} {
		assert.True(t, ValidCode(code), code)
	}
	for _, code := range []string{"", "123", "12345", "12a4", " 1234", "١٢٣٤"} {
		assert.False(t, ValidCode(code), code)
	}
}

func TestDirection(t *testing.T) {
	assert.True(t, DirectionIn.Valid())
	assert.True(t, DirectionOut.Valid())
	assert.False(t, Direction("in").Valid())
	assert.False(t, Direction("").Valid())
}

func TestOnlyPunchesAreBindable(t *testing.T) {
	assert.True(t, PurposeClockIn.Bindable())
	assert.True(t, PurposeClockOut.Bindable())
	for _, p := range []Purpose{PurposeLocationTest, PurposeQuery, PurposeCardCorrect, PurposeOvertime, PurposeLeave, PurposeShiftChange} {
		assert.False(t, p.Bindable(), p)
	}
}

func TestFormKinds(t *testing.T) {
	tests := []struct {
		kind     FormKind
		function string
		purpose  Purpose
	}{
		{FormCardCorrection, "submitCardCorrection", PurposeCardCorrect},
		{FormOvertime, "submitOvertimeRequest", PurposeOvertime},
		{FormLeave, "submitLeaveRequest", PurposeLeave},
		{FormShiftChange, "submitShiftChange", PurposeShiftChange},
		{FormKind("vacation"), "", ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.function, tt.kind.Function())
			assert.Equal(t, tt.purpose, tt.kind.Purpose())
		})
	}
}

func TestNewEvidenceCarriesOnlyTheConsensus(t *testing.T) {
	c := geomodels.Consensus{Lat: 25.0339, Lng: 121.5645, Accuracy: 14.5, Confidence: 0.8, SampleCount: 4}
	e := NewEvidence(c, 1_760_000_000_000)
	assert.Equal(t, Evidence{Lat: 25.0339, Lng: 121.5645, Accuracy: 14.5, Confidence: 0.8, Timestamp: 1_760_000_000_000}, e)
}
