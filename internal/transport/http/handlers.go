package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"attendance/internal/checkin/models"
	"attendance/internal/checkin/presenter"
	"attendance/internal/geo"
	geomodels "attendance/internal/geo/models"
	dErrors "attendance/pkg/domain-errors"
	"attendance/pkg/platform/httputil"
)

// positionFields is the caller's current fix. Lat and lng are required;
// accuracy defaults to geo.DefaultAccuracy.
type positionFields struct {
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

func (p positionFields) position() (geomodels.Position, error) {
	if p.Lat == nil || p.Lng == nil {
		return geomodels.Position{}, dErrors.New(dErrors.CodeBadRequest, "lat and lng are required")
	}
	if !geo.ValidCoordinates(*p.Lat, *p.Lng) {
		return geomodels.Position{}, dErrors.New(dErrors.CodeBadRequest, "lat or lng out of range")
	}
	pos := geomodels.Position{Lat: *p.Lat, Lng: *p.Lng, Accuracy: geo.DefaultAccuracy}
	if p.Accuracy != nil {
		if *p.Accuracy <= 0 {
			return geomodels.Position{}, dErrors.New(dErrors.CodeBadRequest, "accuracy must be positive")
		}
		pos.Accuracy = *p.Accuracy
	}
	return pos, nil
}

type punchRequest struct {
	positionFields
	Code      string `json:"code"`
	Direction string `json:"direction"`
	Force     bool   `json:"force"`
}

type locationRequest struct {
	positionFields
	Code string `json:"code"`
}

type formRequest struct {
	Code   string `json:"code"`
	Fields []any  `json:"fields"`
}

type clickRequest struct {
	Code   string `json:"code"`
	Target string `json:"target"`
}

// response pairs the rendered outcome with the raw result.
type response struct {
	Outcome presenter.Outcome `json:"outcome"`
	Result  any               `json:"result,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handlePunch(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[punchRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	pos, err := req.position()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.attendance.Punch(geo.WithPosition(r.Context(), pos), models.PunchRequest{
		Code:      req.Code,
		Direction: models.Direction(req.Direction),
		Force:     req.Force,
	})
	if err != nil {
		h.fail(w, r, "punch", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, response{Outcome: presenter.Punch(res.Message, res.Detail), Result: res})
}

func (h *Handler) handleLocationTest(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[locationRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	pos, err := req.position()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.attendance.TestLocation(geo.WithPosition(r.Context(), pos), req.Code)
	if err != nil {
		h.fail(w, r, "location test", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, response{Outcome: presenter.Location(res), Result: res})
}

func (h *Handler) handleAttendance(w http.ResponseWriter, r *http.Request) {
	res, err := h.attendance.QueryAttendance(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.fail(w, r, "attendance query", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, response{Outcome: presenter.Attendance(res), Result: res})
}

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[formRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	kind := models.FormKind(chi.URLParam(r, "kind"))
	res, err := h.attendance.SubmitForm(r.Context(), req.Code, kind, req.Fields)
	if err != nil {
		h.fail(w, r, "form submission", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, response{Outcome: presenter.Form(res), Result: res})
}

func (h *Handler) handleClick(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[clickRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Target == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "target is required"))
		return
	}
	h.attendance.LogClick(r.Context(), req.Code, req.Target)
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleDeviceID(w http.ResponseWriter, r *http.Request) {
	ident, err := h.devices.Identity(r.Context())
	if err != nil {
		h.fail(w, r, "device id", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ident)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	report, err := h.devices.ValidateStoredIDs(r.Context())
	if err != nil {
		h.fail(w, r, "device id validation", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleTriggers(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.triggers.State())
}

func (h *Handler) handleNetwork(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"quality": string(h.network.Quality())})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	outcome := presenter.Failure(err)
	if outcome.IsError() {
		h.logger.InfoContext(r.Context(), action+" failed", "classification", dErrors.Classify(err), "error", err)
	}
	httputil.WriteErrorDetails(w, err, outcome)
}
