// Package recorder runs a recording session: it polls the location source
// on a fixed interval, cleans every fix into a sample and keeps the track
// and its running distance.
package recorder

import (
	"context"
	"sync"
	"time"

	"route-tracker/internal/geo"
	"route-tracker/internal/geolocation"
	"route-tracker/internal/monitoring"
	"route-tracker/internal/timeutil"
	"route-tracker/internal/trip"
)

type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

const DefaultInterval = time.Second

type Options struct {
	Interval   time.Duration
	FixOptions geolocation.Options
	Clock      timeutil.Clock
	// OnSample is called from the sampling loop after every append. It is
	// never called once Stop has returned.
	OnSample func(geo.GeoSample)
}

// Status is a point-in-time view of the recorder.
type Status struct {
	State           State          `json:"-"`
	StateName       string         `json:"state"`
	Samples         int            `json:"samples"`
	TotalDistanceKm float64        `json:"totalDistanceKm"`
	Last            *geo.GeoSample `json:"last,omitempty"`
	Err             string         `json:"error,omitempty"`
}

type session struct {
	track    Track
	smoother *geo.SpeedSmoother
	cancel   context.CancelFunc
	done     chan struct{}
}

// Recorder owns at most one session at a time. Fix requests are issued
// one at a time from the session goroutine, so two fixes are never in
// flight together; ticks that fire during a request are coalesced by the
// ticker.
type Recorder struct {
	provider geolocation.Provider
	opts     Options

	mu       sync.Mutex
	starting bool
	current  *session
	lastErr  error
}

// New returns an idle recorder. A nil provider makes every Start fail with
// *UnsupportedEnvironmentError.
func New(provider geolocation.Provider, opts Options) *Recorder {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.FixOptions == (geolocation.Options{}) {
		opts.FixOptions = geolocation.DefaultOptions()
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	return &Recorder{provider: provider, opts: opts}
}

// Start validates details, takes the first fix and arms the sampling loop.
// It is a no-op while a session is recording or starting.
func (r *Recorder) Start(ctx context.Context, details trip.Details) error {
	r.mu.Lock()
	if r.current != nil || r.starting {
		r.mu.Unlock()
		return nil
	}
	if r.provider == nil {
		r.mu.Unlock()
		return &UnsupportedEnvironmentError{}
	}
	if err := details.Validate(); err != nil {
		r.mu.Unlock()
		return err
	}
	r.starting = true
	r.mu.Unlock()

	s := &session{
		track:    Track{Details: details, StartedAt: r.opts.Clock.Now()},
		smoother: geo.NewSpeedSmoother(),
		done:     make(chan struct{}),
	}
	first, err := r.sample(ctx, s)

	r.mu.Lock()
	r.starting = false
	if err != nil {
		r.lastErr = err
		r.mu.Unlock()
		monitoring.Warnf("recording not started: %v", err)
		return err
	}
	_ = s.track.add(first)
	r.lastErr = nil

	// The session outlives the request that started it.
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	r.current = s
	ticker := r.opts.Clock.NewTicker(r.opts.Interval)
	go r.loop(sctx, s, ticker, first)
	r.mu.Unlock()

	monitoring.Infof("recording started at %.6f,%.6f", first.Latitude, first.Longitude)
	return nil
}

// sample requests one fix and turns it into a sample. Invalid coordinates
// are reported as an unavailable position and leave the smoother untouched.
func (r *Recorder) sample(ctx context.Context, s *session) (geo.GeoSample, error) {
	fix, err := r.provider.CurrentFix(ctx, r.opts.FixOptions)
	if err != nil {
		return geo.GeoSample{}, unavailable(err)
	}
	smp, err := geo.NewGeoSample(fix, 0)
	if err != nil {
		return geo.GeoSample{}, &LocationUnavailableError{Code: geolocation.CodePositionUnavailable, Cause: err}
	}
	smp.SmoothedSpeed = s.smoother.Smooth(smp.RawSpeed)
	return smp, nil
}

func (r *Recorder) loop(ctx context.Context, s *session, ticker timeutil.Ticker, first geo.GeoSample) {
	defer close(s.done)
	defer ticker.Stop()

	r.emit(first)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			r.tick(ctx, s)
		}
	}
}

func (r *Recorder) tick(ctx context.Context, s *session) {
	smp, err := r.sample(ctx, s)
	if ctx.Err() != nil {
		return
	}

	r.mu.Lock()
	if r.current != s {
		r.mu.Unlock()
		return
	}
	if err != nil {
		r.lastErr = err
		r.mu.Unlock()
		monitoring.Errorf("fix failed, recording continues: %v", err)
		return
	}
	warn := s.track.add(smp)
	r.lastErr = nil
	r.mu.Unlock()

	if warn != nil {
		if isJumpWarning(warn) {
			monitoring.Warnf("distance increment suppressed: %v", warn)
		} else {
			monitoring.Warnf("distance skipped: %v", warn)
		}
	}
	r.emit(smp)
}

func (r *Recorder) emit(smp geo.GeoSample) {
	if r.opts.OnSample != nil {
		r.opts.OnSample(smp)
	}
}

// Stop cancels the session, waits for the sampling loop to exit and hands
// off the finished track. It reports false when nothing was recording.
func (r *Recorder) Stop() (Track, bool) {
	r.mu.Lock()
	s := r.current
	if s == nil {
		r.mu.Unlock()
		return Track{}, false
	}
	s.cancel()
	r.current = nil
	r.mu.Unlock()

	<-s.done
	s.track.EndedAt = r.opts.Clock.Now()
	monitoring.Infof("recording stopped: %d samples, %.3f km", len(s.track.History), s.track.TotalDistanceKm)
	return s.track, true
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		return Recording
	}
	return Idle
}

func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{State: Idle}
	if r.lastErr != nil {
		st.Err = r.lastErr.Error()
	}
	if s := r.current; s != nil {
		st.State = Recording
		st.Samples = len(s.track.History)
		st.TotalDistanceKm = s.track.TotalDistanceKm
		if last, ok := s.track.Last(); ok {
			st.Last = &last
		}
	}
	st.StateName = st.State.String()
	return st
}

// Err returns the last fix failure, or nil once a later fix succeeded.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Snapshot copies the track being recorded.
func (r *Recorder) Snapshot() (Track, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return Track{}, false
	}
	return r.current.track.clone(), true
}
