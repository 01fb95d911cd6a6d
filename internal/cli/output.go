package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"attendance/internal/checkin/presenter"
	dErrors "attendance/pkg/domain-errors"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the backend or the device refused the action
	ExitCommandError = 2 // bad flags, missing configuration, startup failure
	ExitCancelled    = 3
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err. Unclassified errors map to
// ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter renders outcomes as text or JSON.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// Response is the JSON envelope written for every command.
type Response struct {
	Status  string            `json:"status"`
	Outcome presenter.Outcome `json:"outcome"`
	Data    any               `json:"data,omitempty"`
}

// Outcome writes o, with data attached in JSON mode.
func (f *OutputFormatter) Outcome(o presenter.Outcome, data any) error {
	if f.Format == "json" {
		status := "ok"
		if o.IsError() {
			status = "error"
		}
		return json.NewEncoder(f.Writer).Encode(Response{Status: status, Outcome: o, Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, o.String())
	return err
}

// Data writes a plain value: indented JSON in JSON mode, the value's own
// formatting otherwise.
func (f *OutputFormatter) Data(v any) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(f.Writer, v)
	return err
}

// Fail renders err and returns the ExitError the command should return.
func (f *OutputFormatter) Fail(err error) error {
	o := presenter.Failure(err)
	if rerr := f.Outcome(o, nil); rerr != nil {
		return rerr
	}
	code := ExitFailure
	switch dErrors.Classify(err) {
	case dErrors.ClassAbort:
		code = ExitCancelled
	case dErrors.ClassConfigurationMissing, dErrors.ClassInvalidInput:
		code = ExitCommandError
	}
	return WrapExitError(code, o.Title, err)
}

// Debugf writes diagnostics when verbose output is enabled.
func (f *OutputFormatter) Debugf(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
