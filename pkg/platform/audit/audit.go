// Package audit records the outcome of every settled attendance action.
package audit

import (
	"context"
	"time"
)

// Action names what was attempted.
type Action string

const (
	ActionPunch        Action = "punch"
	ActionLocationTest Action = "location_test"
	ActionQuery        Action = "attendance_query"
	ActionForm         Action = "form_submission"
	ActionBind         Action = "device_bind"
	ActionClick        Action = "click"
	ActionIDRepair     Action = "device_id_repair"
)

// Event is one settled action. Keep it transport-agnostic so stores and
// sinks can fan out.
type Event struct {
	ID             string        `json:"id,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
	Action         Action        `json:"action"`
	Trigger        string        `json:"trigger,omitempty"`
	DeviceCode     string        `json:"deviceCode,omitempty"`
	DeviceID       string        `json:"deviceId,omitempty"`
	Classification string        `json:"classification,omitempty"`
	Reason         string        `json:"reason,omitempty"`
	Message        string        `json:"message,omitempty"`
	CorrelationID  string        `json:"correlationId,omitempty"`
	Latency        time.Duration `json:"latency"`
}

// Succeeded reports whether the action settled without a classified failure.
func (e Event) Succeeded() bool {
	return e.Classification == ""
}

// Store persists events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

