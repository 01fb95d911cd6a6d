package models

import (
	"regexp"

	geomodels "attendance/internal/geo/models"
	rpcmodels "attendance/internal/rpc/models"
)

var codePattern = regexp.MustCompile(`^\d{4}$`)

// ValidCode reports whether code is exactly four digits, the last four
// characters of the employee's national ID.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// Direction is the punch kind the backend records.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// Purpose is logged by the backend alongside a device binding check.
type Purpose string

const (
	PurposeClockIn      Purpose = "clock-in"
	PurposeClockOut     Purpose = "clock-out"
	PurposeLocationTest Purpose = "location-test"
	PurposeQuery        Purpose = "attendance-query"
	PurposeCardCorrect  Purpose = "card-correction"
	PurposeOvertime     Purpose = "overtime-request"
	PurposeLeave        Purpose = "leave-request"
	PurposeShiftChange  Purpose = "shift-change"
)

// Bindable reports whether an unbound device may be bound during this check.
// Only punches offer to bind.
func (p Purpose) Bindable() bool {
	return p == PurposeClockIn || p == PurposeClockOut
}

// FormKind selects the backend function a form submission goes to.
type FormKind string

const (
	FormCardCorrection FormKind = "card-correction"
	FormOvertime       FormKind = "overtime"
	FormLeave          FormKind = "leave"
	FormShiftChange    FormKind = "shift-change"
)

var formFunctions = map[FormKind]string{
	FormCardCorrection: "submitCardCorrection",
	FormOvertime:       "submitOvertimeRequest",
	FormLeave:          "submitLeaveRequest",
	FormShiftChange:    "submitShiftChange",
}

var formPurposes = map[FormKind]Purpose{
	FormCardCorrection: PurposeCardCorrect,
	FormOvertime:       PurposeOvertime,
	FormLeave:          PurposeLeave,
	FormShiftChange:    PurposeShiftChange,
}

// Function returns the backend function name, or "" for an unknown kind.
func (k FormKind) Function() string {
	return formFunctions[k]
}

func (k FormKind) Purpose() Purpose {
	return formPurposes[k]
}

// PunchRequest asks for one clock-in or clock-out.
type PunchRequest struct {
	Code      string
	Direction Direction
	Force     bool
}

// Evidence is the only location data sent with a punch or location test.
type Evidence struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Accuracy   float64 `json:"accuracy"`
	Confidence float64 `json:"confidence"`
	Timestamp  int64   `json:"timestamp"`
}

func NewEvidence(c geomodels.Consensus, nowMs int64) Evidence {
	return Evidence{
		Lat:        c.Lat,
		Lng:        c.Lng,
		Accuracy:   c.Accuracy,
		Confidence: c.Confidence,
		Timestamp:  nowMs,
	}
}

type PunchResult struct {
	Direction Direction                `json:"direction"`
	Message   string                   `json:"message"`
	Detail    *rpcmodels.CheckinDetail `json:"detail,omitempty"`
	Location  geomodels.Consensus      `json:"location"`
	DeviceID  string                   `json:"deviceId"`
	Bound     bool                     `json:"bound"`
}

type LocationReport struct {
	Status   rpcmodels.Status    `json:"status"`
	Message  string              `json:"message,omitempty"`
	HTML     string              `json:"html,omitempty"`
	Location geomodels.Consensus `json:"location"`
}

type AttendanceReport struct {
	UserName    string `json:"userName,omitempty"`
	RecordCount int    `json:"recordCount"`
	Records     any    `json:"records"`
	HTML        string `json:"html,omitempty"`
}

type FormReceipt struct {
	Kind    FormKind `json:"kind"`
	Message string   `json:"message"`
}
