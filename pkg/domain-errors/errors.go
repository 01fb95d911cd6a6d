// Package domainerrors carries the failure taxonomy shared by every attendance
// component. Each error holds a Code; the Code decides whether the failure is
// retried, surfaced as an error, or shown as a neutral cancellation.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a failure category.
type Code string

const (
	// CodeAborted marks an explicit cancellation. Never retried.
	CodeAborted Code = "aborted"
	// CodeTimeout marks a remote call that exceeded its deadline. Transient.
	CodeTimeout Code = "timeout"
	// CodeTransport marks a delivery-level failure. Transient.
	CodeTransport Code = "transport_failure"
	// CodeTerminal marks an exhausted retry budget or a business rejection.
	CodeTerminal Code = "terminal"
	// CodePermissionDenied marks a local capability refusal such as location access.
	CodePermissionDenied Code = "permission_denied"
	// CodeConfigMissing marks an absent endpoint or required configuration value.
	CodeConfigMissing Code = "configuration_missing"

	CodeBadRequest Code = "bad_request"
	CodeBusy       Code = "busy"
	CodeInternal   Code = "internal_error"
)

// Error is a categorized failure. Reason optionally carries the remote
// business code (for example AUTH.NOT_IN_AUTHLIST) behind a Terminal error.
type Error struct {
	Code    Code
	Message string
	Reason  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a categorized error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a category to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// WithReason returns a Terminal error carrying the remote business code.
func WithReason(code Code, reason, message string) *Error {
	return &Error{Code: code, Message: message, Reason: reason}
}

// CodeOf extracts the outermost Code. Uncategorized errors are internal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ReasonOf extracts the remote business code, if any.
func ReasonOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}

// MessageOf extracts the human message without the code prefix.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// HasCode reports whether err carries code anywhere in its chain.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// IsTransient reports whether err is worth another attempt.
func IsTransient(err error) bool {
	switch CodeOf(err) {
	case CodeTimeout, CodeTransport:
		return true
	default:
		return false
	}
}
