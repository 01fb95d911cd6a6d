package service

import (
	rpcmodels "attendance/internal/rpc/models"
	dErrors "attendance/pkg/domain-errors"
)

// Business codes returned by the backend.
const (
	ReasonNotBound           = "AUTH.NOT_BOUND"
	ReasonNotInAuthList      = "AUTH.NOT_IN_AUTHLIST"
	ReasonDeviceMismatch     = "AUTH.DEVICE_MISMATCH"
	ReasonDeviceTypeMismatch = "AUTH.DEVICE_TYPE_MISMATCH"
	ReasonInvalidUser        = "AUTH.INVALID_USER"
	ReasonInsufficientRest   = "SHIFT.INSUFFICIENT_REST"
	ReasonRateLimited        = "SYS.RATE_LIMIT_EXCEEDED"
	ReasonOutOfRange         = "GPS.OUT_OF_RANGE"
	ReasonRangeError         = "GPS.RANGE_ERROR"
	ReasonUnsupportedClient  = "BROWSER.UNSUPPORTED"

	// ReasonOffline is raised locally when the device reports no connectivity.
	ReasonOffline = "NETWORK.OFFLINE"
)

var errInvalidCode = dErrors.New(dErrors.CodeBadRequest, "enter the last four digits of your ID")

// punchMessages replace the backend message for rejections with a known remedy.
var punchMessages = map[string]string{
	ReasonInsufficientRest:  "not enough rest since your last shift, try again later",
	ReasonRateLimited:       "too many attempts, try again later",
	ReasonOutOfRange:        "outside the check-in area, toggle your network connection and retry",
	ReasonRangeError:        "outside the check-in area, toggle your network connection and retry",
	ReasonUnsupportedClient: "unsupported browser, use Chrome or Safari",
}

// punchSuffixes are appended to the backend message.
var punchSuffixes = map[string]string{
	ReasonDeviceMismatch:     "device mismatch, contact support",
	ReasonDeviceTypeMismatch: "bound device type differs, contact support",
}

// punchRejection maps a status=error punch reply to a Terminal error.
func punchRejection(res *rpcmodels.Result) error {
	msg := res.Message
	if msg == "" {
		msg = "system error, try again later"
	}
	if m, ok := punchMessages[res.Error]; ok {
		msg = m
	}
	if suffix, ok := punchSuffixes[res.Error]; ok {
		msg += " (" + suffix + ")"
	}
	if len(res.Detail) > 0 {
		msg += " detail: " + string(res.Detail)
	}
	return dErrors.WithReason(dErrors.CodeTerminal, res.Error, msg)
}

// unauthorized keeps the backend's message verbatim.
func unauthorized(res *rpcmodels.Result) error {
	msg := res.Message
	if msg == "" {
		msg = "not on the authorized list"
	}
	return dErrors.WithReason(dErrors.CodeTerminal, res.Error, msg)
}
