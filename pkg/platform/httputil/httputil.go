package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	dErrors "attendance/pkg/domain-errors"
)

// StatusClientClosed is used when the caller cancelled the operation.
const StatusClientClosed = 499

const maxBodyBytes = 64 << 10

// StatusFor maps an error code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeBusy:
		return http.StatusConflict
	case dErrors.CodePermissionDenied:
		return http.StatusForbidden
	case dErrors.CodeTerminal:
		return http.StatusUnprocessableEntity
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeTransport:
		return http.StatusBadGateway
	case dErrors.CodeConfigMissing:
		return http.StatusServiceUnavailable
	case dErrors.CodeAborted:
		return StatusClientClosed
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody is the JSON error envelope. Details carries a rendered outcome
// when the caller has one.
type ErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Details          any    `json:"details,omitempty"`
}

// WriteError writes err as an error envelope. Internal errors never expose
// their message.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorDetails(w, err, nil)
}

func WriteErrorDetails(w http.ResponseWriter, err error, details any) {
	code := dErrors.CodeOf(err)
	body := ErrorBody{Error: string(code), Details: details}
	if code != dErrors.CodeInternal {
		body.ErrorDescription = dErrors.MessageOf(err)
	}
	WriteJSON(w, StatusFor(code), body)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads a bounded JSON body into T. Unknown fields are rejected.
func DecodeJSON[T any](r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, dErrors.Wrap(err, dErrors.CodeBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	return v, nil
}
