package models

import (
	"encoding/json"
	"time"

	dErrors "attendance/pkg/domain-errors"
)

// Status is the backend's verdict on a call.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusWarning Status = "warning"
)

// Request describes one remote invocation. Parameters are positional.
type Request struct {
	FunctionName string
	Parameters   []any
	Timeout      time.Duration
}

// Envelope is what a transport delivers: the request plus its correlation id.
type Envelope struct {
	CorrelationID string `json:"correlationId"`
	FunctionName  string `json:"function"`
	Parameters    []any  `json:"parameters"`
}

// Result is the backend reply. Payload holds every field of the reply,
// including the ones promoted into typed fields.
type Result struct {
	Status  Status          `json:"status"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Detail  json.RawMessage `json:"detail,omitempty"`
	Payload map[string]any  `json:"-"`
}

// UnmarshalJSON keeps the whole reply in Payload alongside the typed fields.
func (r *Result) UnmarshalJSON(data []byte) error {
	type plain Result
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	*r = Result(p)
	r.Payload = payload
	return nil
}

// Valid reports whether the reply carries a known status.
func (r *Result) Valid() bool {
	if r == nil {
		return false
	}
	switch r.Status {
	case StatusSuccess, StatusError, StatusWarning:
		return true
	default:
		return false
	}
}

// Err turns a status=error reply into a Terminal business rejection. The
// backend's message is kept verbatim; when absent the business code stands in.
func (r *Result) Err() error {
	if r == nil || r.Status != StatusError {
		return nil
	}
	msg := r.Message
	if msg == "" {
		msg = r.Error
	}
	return dErrors.WithReason(dErrors.CodeTerminal, r.Error, msg)
}

// CheckinDetail is the optional display detail of a punch reply.
type CheckinDetail struct {
	Time        string   `json:"time,omitempty"`
	Stability   *float64 `json:"stability,omitempty"`
	GPSAccuracy string   `json:"gpsAccuracy,omitempty"`
}

// CheckinDetail decodes Detail when it has the punch shape.
func (r *Result) CheckinDetail() (*CheckinDetail, bool) {
	if r == nil || len(r.Detail) == 0 {
		return nil, false
	}
	var d CheckinDetail
	if err := json.Unmarshal(r.Detail, &d); err != nil {
		return nil, false
	}
	if d.Time == "" && d.Stability == nil && d.GPSAccuracy == "" {
		return nil, false
	}
	return &d, true
}

// RetryState is reported to the progress observer before each backoff wait.
type RetryState struct {
	Attempt   int
	NextDelay time.Duration
}

// ProgressObserver receives retry progress. It is not an error channel.
type ProgressObserver func(function string, state RetryState)
