// internal/httpserver/handler.go
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"route-tracker/internal/export"
	"route-tracker/internal/mw"
	"route-tracker/internal/outbox"
	"route-tracker/internal/recorder"
	"route-tracker/internal/session"
	"route-tracker/internal/submit"
	"route-tracker/internal/trip"
)

type Handler struct {
	Sessions *session.Manager
}

func NewHandler(mgr *session.Manager) *Handler {
	return &Handler{Sessions: mgr}
}

type errorBody struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind"`
	Fields  []string `json:"fields,omitempty"`
	Cause   string   `json:"cause,omitempty"`
	Message string   `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the failure kinds to status codes.
func writeError(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error(), Message: err.Error()}
	code := http.StatusInternalServerError

	var (
		missing     *trip.MissingFieldError
		unsupported *recorder.UnsupportedEnvironmentError
		unavailable *recorder.LocationUnavailableError
		transport   *submit.TransportError
	)
	switch {
	case errors.As(err, &missing):
		code, body.Kind, body.Fields = http.StatusBadRequest, "missing-field", missing.Fields
	case errors.As(err, &unsupported):
		code, body.Kind = http.StatusPreconditionFailed, "unsupported-environment"
	case errors.As(err, &unavailable):
		code, body.Kind, body.Cause = http.StatusServiceUnavailable, "location-unavailable", unavailable.Code.String()
		body.Message = unavailable.Code.Message()
	case errors.As(err, &transport):
		code, body.Kind = http.StatusBadGateway, "transport-"+string(transport.Kind)
		if transport.Message != "" {
			body.Message = transport.Message
		}
	case errors.Is(err, session.ErrNotConfigured), errors.Is(err, session.ErrNothingPending),
		errors.Is(err, outbox.ErrNotFound), errors.Is(err, export.ErrEmptyTrack):
		code, body.Kind = http.StatusNotFound, "not-found"
	case errors.Is(err, session.ErrNotRecording), errors.Is(err, session.ErrRecording),
		errors.Is(err, session.ErrDeviceBusy), errors.Is(err, session.ErrPendingSubmission):
		code, body.Kind = http.StatusConflict, "conflict"
	default:
		body.Kind = "internal"
	}
	writeJSON(w, code, body)
}

func (h *Handler) RegisterTrip(w http.ResponseWriter, r *http.Request) {
	var d trip.Details
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	ref, err := h.Sessions.Register(r.Context(), mw.UserID(r.Context()), mw.Token(r.Context()), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	v, err := h.Sessions.Start(r.Context(), mw.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	res, err := h.Sessions.Stop(r.Context(), mw.UserID(r.Context()), mw.Token(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	res, err := h.Sessions.Retry(r.Context(), mw.UserID(r.Context()), mw.Token(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Sessions.Status(r.Context(), mw.UserID(r.Context())))
}

func (h *Handler) TrackGeoJSON(w http.ResponseWriter, r *http.Request) {
	tr, ok := h.Sessions.Track(mw.UserID(r.Context()))
	if !ok {
		writeError(w, export.ErrEmptyTrack)
		return
	}
	data, err := export.GeoJSON(tr)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

func (h *Handler) TrackGPX(w http.ResponseWriter, r *http.Request) {
	tr, ok := h.Sessions.Track(mw.UserID(r.Context()))
	if !ok {
		writeError(w, export.ErrEmptyTrack)
		return
	}
	data, err := export.GPX(tr, tr.Details.VehicleNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/gpx+xml")
	w.Header().Set("Content-Disposition", `attachment; filename="track.gpx"`)
	_, _ = w.Write(data)
}
