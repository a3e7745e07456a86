package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"route-tracker/internal/geo"
	"route-tracker/internal/geolocation"
	"route-tracker/internal/monitoring"
	"route-tracker/internal/outbox"
	"route-tracker/internal/recorder"
	"route-tracker/internal/submit"
	"route-tracker/internal/trip"
)

const (
	liveWriteTimeout = 2 * time.Second
	bookkeepTimeout  = 5 * time.Second
)

type liveTarget struct {
	sessionID string
	vehicleID string
}

type Manager struct {
	rec  *recorder.Recorder
	deps Deps
	now  func() time.Time

	// op serializes the state-changing operations; mu guards sessions.
	op       sync.Mutex
	mu       sync.Mutex
	sessions map[string]*Session
	active   *Session

	live atomic.Pointer[liveTarget]
}

// New builds the manager and the recorder it drives. opts.OnSample is
// replaced.
func New(provider geolocation.Provider, opts recorder.Options, deps Deps) *Manager {
	m := &Manager{deps: deps, now: time.Now, sessions: make(map[string]*Session)}
	if opts.Clock != nil {
		m.now = opts.Clock.Now
	}
	opts.OnSample = m.onSample
	m.rec = recorder.New(provider, opts)
	return m
}

// Recorder exposes the underlying recorder.
func (m *Manager) Recorder() *recorder.Recorder { return m.rec }

// Recover reloads unsent payloads so their owners can retry after a
// restart. It reports how many sessions were restored; entries for users
// who already have a session are left in the outbox untouched.
func (m *Manager) Recover(ctx context.Context) (int, error) {
	entries, err := m.deps.Outbox.Pending(ctx)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	restored := 0
	for _, e := range entries {
		if _, ok := m.sessions[e.UserID]; ok {
			monitoring.Warnf("session %s not restored: user %s already has a session", e.SessionID, e.UserID)
			continue
		}
		m.sessions[e.UserID] = &Session{
			ID:        e.SessionID,
			UserID:    e.UserID,
			Ref:       trip.Ref{PathID: e.Payload.PathID, VehicleID: e.Payload.VehicleID},
			Phase:     PhasePendingSubmission,
			LastError: e.LastError,
			UpdatedAt: e.UpdatedAt,
		}
		restored++
	}
	return restored, nil
}

// Register validates the trip details, files them with the backend and
// keeps the returned ids for the recording.
func (m *Manager) Register(ctx context.Context, userID, token string, d trip.Details) (trip.Ref, error) {
	d.ApplyDefaultMass()
	if err := d.Validate(); err != nil {
		return trip.Ref{}, err
	}

	m.op.Lock()
	defer m.op.Unlock()

	if s := m.session(userID); s != nil {
		switch s.Phase {
		case PhaseRecording:
			return trip.Ref{}, ErrRecording
		case PhasePendingSubmission:
			return trip.Ref{}, ErrPendingSubmission
		}
	}

	ref, err := m.deps.Registrar.RegisterTrip(ctx, token, d)
	if err != nil {
		return trip.Ref{}, err
	}

	m.mu.Lock()
	m.sessions[userID] = &Session{UserID: userID, Details: d, Ref: ref, Phase: PhaseConfigured, UpdatedAt: m.now()}
	m.mu.Unlock()
	monitoring.Infof("trip registered for user %s: path %s vehicle %s", userID, ref.PathID, ref.VehicleID)
	return ref, nil
}

// Start begins recording the user's registered trip. Starting an already
// recording session is a no-op.
func (m *Manager) Start(ctx context.Context, userID string) (View, error) {
	m.op.Lock()
	defer m.op.Unlock()

	s := m.session(userID)
	if s == nil {
		return View{}, ErrNotConfigured
	}
	switch s.Phase {
	case PhaseRecording:
		return m.Status(ctx, userID), nil
	case PhasePendingSubmission:
		return View{}, ErrPendingSubmission
	}
	m.mu.Lock()
	busy := m.active != nil
	m.mu.Unlock()
	if busy {
		return View{}, ErrDeviceBusy
	}

	id := uuid.NewString()
	m.live.Store(&liveTarget{sessionID: id, vehicleID: s.Ref.VehicleID})
	if err := m.rec.Start(ctx, s.Details); err != nil {
		m.live.Store(nil)
		m.setError(s, err)
		return View{}, err
	}

	m.mu.Lock()
	s.ID = id
	s.Phase = PhaseRecording
	s.LastError = ""
	s.UpdatedAt = m.now()
	m.active = s
	m.mu.Unlock()
	monitoring.Infof("session %s recording for user %s", id, userID)
	return m.Status(ctx, userID), nil
}

// Stop ends the recording and submits the track. When the hand-off fails
// the payload is kept in the outbox, the session stays resumable and the
// *submit.TransportError is returned.
func (m *Manager) Stop(ctx context.Context, userID, token string) (Result, error) {
	m.op.Lock()
	defer m.op.Unlock()

	m.mu.Lock()
	s := m.active
	m.mu.Unlock()
	if s == nil || s.UserID != userID {
		return Result{}, ErrNotRecording
	}

	tr, ok := m.rec.Stop()
	m.live.Store(nil)
	if !ok {
		monitoring.Warnf("session %s: recorder was already idle", s.ID)
	}

	payload := submit.BuildPayload(tr, s.Ref, userID)
	m.mu.Lock()
	s.Track = &tr
	s.Phase = PhasePendingSubmission
	s.UpdatedAt = m.now()
	m.active = nil
	m.mu.Unlock()

	return m.deliver(ctx, s, token, payload)
}

// Retry re-submits the user's pending payload from the outbox.
func (m *Manager) Retry(ctx context.Context, userID, token string) (Result, error) {
	m.op.Lock()
	defer m.op.Unlock()

	s := m.session(userID)
	if s == nil || s.Phase != PhasePendingSubmission {
		return Result{}, ErrNothingPending
	}
	entry, err := m.deps.Outbox.Get(ctx, s.ID)
	switch {
	case err == nil:
		return m.deliver(ctx, s, token, entry.Payload)
	case errors.Is(err, outbox.ErrNotFound) && s.Track != nil:
		return m.deliver(ctx, s, token, submit.BuildPayload(*s.Track, s.Ref, userID))
	default:
		return Result{}, err
	}
}

func (m *Manager) deliver(ctx context.Context, s *Session, token string, p submit.Payload) (Result, error) {
	res := Result{SessionID: s.ID, Samples: len(p.LocationHistory), TotalDistanceKm: p.TotalDistanceKm}

	if m.deps.Store != nil {
		done, err := m.deps.Store.IsSubmitted(ctx, s.ID)
		if err != nil {
			monitoring.Warnf("session %s: submitted marker unavailable: %v", s.ID, err)
		}
		if done {
			res.Duplicate = true
			res.Message = "already submitted"
			m.finish(ctx, s)
			return res, nil
		}
	}

	rc, err := m.deps.Submitter.Submit(ctx, token, p)
	if err != nil {
		m.setError(s, err)
		bctx, cancel := detached(ctx)
		defer cancel()
		if serr := m.deps.Outbox.Save(bctx, outbox.Entry{
			SessionID: s.ID,
			UserID:    s.UserID,
			Payload:   p,
			LastError: err.Error(),
			UpdatedAt: m.now(),
		}); serr != nil {
			monitoring.Errorf("session %s: payload kept in memory only, outbox failed: %v", s.ID, serr)
		}
		monitoring.Errorf("session %s: submission failed, retry available: %v", s.ID, err)
		return res, err
	}

	bctx, cancel := detached(ctx)
	defer cancel()
	if m.deps.Store != nil {
		if _, err := m.deps.Store.MarkSubmitted(bctx, s.ID); err != nil {
			monitoring.Warnf("session %s: mark submitted: %v", s.ID, err)
		}
	}
	m.finish(ctx, s)
	res.Message = rc.Message
	monitoring.Infof("session %s submitted: %d samples, %.2f km", s.ID, res.Samples, res.TotalDistanceKm)
	return res, nil
}

// detached keeps outbox and marker writes alive after the caller's request
// is cancelled.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), bookkeepTimeout)
}

func (m *Manager) finish(ctx context.Context, s *Session) {
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := m.deps.Outbox.Delete(ctx, s.ID); err != nil {
		monitoring.Warnf("session %s: outbox cleanup: %v", s.ID, err)
	}
	m.mu.Lock()
	if m.sessions[s.UserID] == s {
		delete(m.sessions, s.UserID)
	}
	m.mu.Unlock()
}

func (m *Manager) setError(s *Session, err error) {
	m.mu.Lock()
	s.LastError = err.Error()
	s.UpdatedAt = m.now()
	m.mu.Unlock()
}

func (m *Manager) session(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

// Status describes the user's session. The recorder part is only filled in
// for the user who is recording. The vehicle's last published position is
// read from the live store when one is configured.
func (m *Manager) Status(ctx context.Context, userID string) View {
	m.mu.Lock()
	s := m.sessions[userID]
	recording := s != nil && m.active == s
	v := View{Phase: PhaseIdle, Recorder: recorder.Status{StateName: recorder.Idle.String()}}
	if s != nil {
		v.SessionID = s.ID
		v.Phase = s.Phase
		ref := s.Ref
		v.Trip = &ref
		v.LastError = s.LastError
	}
	m.mu.Unlock()

	if recording {
		v.Recorder = m.rec.Status()
		if v.Recorder.Err != "" {
			v.LastError = v.Recorder.Err
		}
	}
	if m.deps.Store != nil && v.Trip != nil && v.Trip.VehicleID != "" {
		v.LastPosition = m.lastPosition(ctx, v.Trip.VehicleID)
	}
	return v
}

func (m *Manager) lastPosition(ctx context.Context, vehicleID string) *trip.Location {
	ctx, cancel := context.WithTimeout(ctx, liveWriteTimeout)
	defer cancel()
	lat, lng, ok, err := m.deps.Store.LastPosition(ctx, vehicleID)
	if err != nil {
		monitoring.Warnf("last position for %s: %v", vehicleID, err)
		return nil
	}
	if !ok {
		return nil
	}
	return &trip.Location{Lat: lat, Lng: lng}
}

// Track returns the user's live or finished track.
func (m *Manager) Track(userID string) (recorder.Track, bool) {
	m.mu.Lock()
	s := m.sessions[userID]
	recording := s != nil && m.active == s
	var finished *recorder.Track
	if s != nil {
		finished = s.Track
	}
	m.mu.Unlock()

	switch {
	case recording:
		return m.rec.Snapshot()
	case finished != nil:
		return *finished, true
	default:
		return recorder.Track{}, false
	}
}

// Shutdown stops any recording without submitting it. The track is saved
// to the outbox so the user can retry after restart.
func (m *Manager) Shutdown(ctx context.Context) {
	m.op.Lock()
	defer m.op.Unlock()

	m.mu.Lock()
	s := m.active
	m.active = nil
	m.mu.Unlock()

	tr, ok := m.rec.Stop()
	m.live.Store(nil)
	if !ok || s == nil {
		return
	}
	p := submit.BuildPayload(tr, s.Ref, s.UserID)
	m.mu.Lock()
	s.Track = &tr
	s.Phase = PhasePendingSubmission
	m.mu.Unlock()
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := m.deps.Outbox.Save(ctx, outbox.Entry{SessionID: s.ID, UserID: s.UserID, Payload: p, LastError: "interrupted by shutdown", UpdatedAt: m.now()}); err != nil {
		monitoring.Errorf("session %s: track lost on shutdown: %v", s.ID, err)
		return
	}
	monitoring.Infof("session %s saved for retry on shutdown", s.ID)
}

func (m *Manager) onSample(smp geo.GeoSample) {
	target := m.live.Load()
	if target == nil || m.deps.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), liveWriteTimeout)
	defer cancel()
	if target.vehicleID != "" {
		if err := m.deps.Store.UpdateLastPosition(ctx, target.vehicleID, smp.Latitude, smp.Longitude); err != nil {
			monitoring.Warnf("live position for %s: %v", target.vehicleID, err)
		}
	}
	if err := m.deps.Store.PublishSample(ctx, target.sessionID, target.vehicleID, smp); err != nil {
		monitoring.Warnf("publish sample for %s: %v", target.sessionID, err)
	}
}
