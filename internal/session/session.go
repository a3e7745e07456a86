// Package session ties a user's trip registration, the recorder and the
// hand-off of the finished track together. The device has one location
// source, so at most one user records at a time.
package session

import (
	"context"
	"errors"
	"time"

	"route-tracker/internal/outbox"
	"route-tracker/internal/recorder"
	"route-tracker/internal/submit"
	"route-tracker/internal/trip"
)

var (
	ErrNotConfigured     = errors.New("no trip registered; submit vehicle and route details first")
	ErrNotRecording      = errors.New("no recording in progress")
	ErrRecording         = errors.New("recording in progress; stop it first")
	ErrDeviceBusy        = errors.New("another user is recording on this device")
	ErrPendingSubmission = errors.New("previous track has not been submitted; retry it first")
	ErrNothingPending    = errors.New("no submission to retry")
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseConfigured Phase = "configured"
	PhaseRecording  Phase = "recording"
	// PhasePendingSubmission: the track is finished but the backend has not
	// accepted it. The payload sits in the outbox until a retry succeeds.
	PhasePendingSubmission Phase = "pending-submission"
)

type Registrar interface {
	RegisterTrip(ctx context.Context, token string, d trip.Details) (trip.Ref, error)
}

type Outbox interface {
	Save(ctx context.Context, e outbox.Entry) error
	Get(ctx context.Context, sessionID string) (outbox.Entry, error)
	Pending(ctx context.Context) ([]outbox.Entry, error)
	Delete(ctx context.Context, sessionID string) error
}

// LiveStore receives every sample while recording, serves the vehicle's
// last position and remembers which sessions were filed.
type LiveStore interface {
	UpdateLastPosition(ctx context.Context, vehicleID string, lat, lng float64) error
	PublishSample(ctx context.Context, sessionID, vehicleID string, payload any) error
	MarkSubmitted(ctx context.Context, sessionID string) (bool, error)
	IsSubmitted(ctx context.Context, sessionID string) (bool, error)
	LastPosition(ctx context.Context, vehicleID string) (lat, lng float64, ok bool, err error)
}

type Deps struct {
	Registrar Registrar
	Submitter submit.Submitter
	Outbox    Outbox
	// Store is optional.
	Store LiveStore
}

// Session is one user's trip from registration to accepted submission.
type Session struct {
	ID        string
	UserID    string
	Details   trip.Details
	Ref       trip.Ref
	Phase     Phase
	Track     *recorder.Track
	LastError string
	UpdatedAt time.Time
}

// View is the JSON shape of a user's session status.
type View struct {
	SessionID string          `json:"sessionId,omitempty"`
	Phase     Phase           `json:"phase"`
	Trip      *trip.Ref       `json:"trip,omitempty"`
	Recorder  recorder.Status `json:"recorder"`
	LastError string          `json:"lastError,omitempty"`
	// LastPosition is the vehicle's position as last published to the live
	// store.
	LastPosition *trip.Location `json:"lastPosition,omitempty"`
}

// Result reports a submission.
type Result struct {
	SessionID       string  `json:"sessionId"`
	Samples         int     `json:"samples"`
	TotalDistanceKm float64 `json:"totalDistanceKm"`
	Message         string  `json:"message"`
	// Duplicate is set when the session had already been filed.
	Duplicate bool `json:"duplicate,omitempty"`
}
