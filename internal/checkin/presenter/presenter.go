// Package presenter turns a settled action into what the UI collaborator
// shows. Cancellations render neutrally; transient failures never get here
// because the retry scheduler converts them once the budget is spent.
package presenter

import (
	"fmt"
	"strings"

	"attendance/internal/checkin/models"
	rpcmodels "attendance/internal/rpc/models"
	dErrors "attendance/pkg/domain-errors"
)

type State string

const (
	StateSuccess   State = "success"
	StateWarning   State = "warning"
	StateCancelled State = "cancelled"
	StateError     State = "error"
)

// Outcome is one rendered result.
type Outcome struct {
	State       State    `json:"state"`
	Title       string   `json:"title"`
	Message     string   `json:"message"`
	Reason      string   `json:"reason,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Lines       []string `json:"lines,omitempty"`
}

// IsError reports whether the outcome is shown as an error banner.
func (o Outcome) IsError() bool {
	return o.State == StateError
}

func (o Outcome) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", o.State, o.Title)
	if o.Message != "" {
		fmt.Fprintf(&b, ": %s", o.Message)
	}
	for _, line := range o.Lines {
		fmt.Fprintf(&b, "\n  %s", line)
	}
	for _, s := range o.Suggestions {
		fmt.Fprintf(&b, "\n  - %s", s)
	}
	return b.String()
}

func Success(title, message string, lines ...string) Outcome {
	return Outcome{State: StateSuccess, Title: title, Message: message, Lines: lines}
}

func Warning(title, message string, lines ...string) Outcome {
	return Outcome{State: StateWarning, Title: title, Message: message, Lines: lines}
}

// Punch renders a successful punch with its optional display detail.
func Punch(message string, detail *rpcmodels.CheckinDetail) Outcome {
	o := Success("Punch recorded", message)
	if detail == nil {
		return o
	}
	if detail.Time != "" {
		o.Lines = append(o.Lines, "time: "+detail.Time)
	}
	if detail.Stability != nil {
		o.Lines = append(o.Lines, fmt.Sprintf("GPS signal stability: %d%%", int(*detail.Stability*100+0.5)))
	}
	if detail.GPSAccuracy != "" {
		o.Lines = append(o.Lines, "GPS accuracy: "+detail.GPSAccuracy)
	}
	return o
}

// Location renders a location test report. Warnings stay warnings.
func Location(r *models.LocationReport) Outcome {
	lines := []string{
		fmt.Sprintf("position: %.6f, %.6f", r.Location.Lat, r.Location.Lng),
		fmt.Sprintf("accuracy: %.0fm, confidence %d%%", r.Location.Accuracy, int(r.Location.Confidence*100+0.5)),
	}
	if r.Status == rpcmodels.StatusWarning {
		return Warning("Location test", r.Message, lines...)
	}
	return Success("Location test", r.Message, lines...)
}

func Attendance(r *models.AttendanceReport) Outcome {
	return Success("Attendance records", r.UserName, fmt.Sprintf("records: %d", r.RecordCount))
}

func Form(r *models.FormReceipt) Outcome {
	return Success("Form submitted", r.Message, "form: "+string(r.Kind))
}

// Failure renders err according to its classification. The message is the
// error's own message, kept verbatim.
func Failure(err error) Outcome {
	msg := dErrors.MessageOf(err)
	reason := dErrors.ReasonOf(err)

	if dErrors.CodeOf(err) == dErrors.CodeBusy {
		return Outcome{State: StateError, Title: "Another operation is in progress", Message: msg,
			Suggestions: []string{"Wait for the current operation to finish"}}
	}

	switch dErrors.Classify(err) {
	case dErrors.ClassNone:
		return Success("Done", "")
	case dErrors.ClassAbort:
		return Outcome{State: StateCancelled, Title: "Operation cancelled", Message: msg}
	case dErrors.ClassTerminal:
		o := Outcome{State: StateError, Title: "Request failed", Message: msg, Reason: reason}
		switch {
		case strings.HasPrefix(reason, "AUTH."):
			o.Title = "Not authorized"
			o.Suggestions = []string{"Contact your administrator to check your authorization"}
		case strings.HasPrefix(reason, "GPS."):
			o.Title = "Location rejected"
			o.Suggestions = []string{"Move closer to your workplace", "Toggle your network connection and retry"}
		case reason == "NETWORK.OFFLINE" || reason == "":
			o.Suggestions = []string{"Check your network connection", "Try again in a few minutes"}
		}
		return o
	case dErrors.ClassPermissionDenied:
		return Outcome{State: StateError, Title: "Location access denied", Message: msg,
			Suggestions: []string{"Allow location access in your device settings", "Reload and try again"}}
	case dErrors.ClassConfigurationMissing:
		return Outcome{State: StateError, Title: "Service not configured", Message: msg,
			Suggestions: []string{"Contact your administrator"}}
	case dErrors.ClassInvalidInput:
		return Outcome{State: StateError, Title: "Check your input", Message: msg}
	case dErrors.ClassTransient:
		return Outcome{State: StateError, Title: "Network problem", Message: msg,
			Suggestions: []string{"Try again in a few minutes"}}
	default:
		return Outcome{State: StateError, Title: "Something went wrong", Message: msg}
	}
}
