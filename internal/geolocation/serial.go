package geolocation

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"go.bug.st/serial"

	"route-tracker/internal/geo"
	"route-tracker/internal/monitoring"
	"route-tracker/internal/timeutil"
)

const knotsToMetersPerSecond = 0.514444

// SerialSource reads NMEA sentences from a GPS receiver and keeps the most
// recent valid RMC fix.
type SerialSource struct {
	port  io.ReadCloser
	clock timeutil.Clock

	mu         sync.Mutex
	latest     geo.Fix
	receivedAt time.Time
	version    uint64
	updated    chan struct{}
	readErr    error
	done       chan struct{}
}

// OpenSerial opens the receiver at path and starts reading from it.
func OpenSerial(path string, baud int) (*SerialSource, error) {
	port, err := serial.Open(path, &serial.Mode{BaudRate: baud, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit})
	if err != nil {
		return nil, &ProviderError{Code: openErrorCode(err), Err: err}
	}
	return NewSerialSource(port, timeutil.RealClock{}), nil
}

func openErrorCode(err error) ErrorCode {
	var perr *serial.PortError
	if errors.As(err, &perr) {
		switch perr.Code() {
		case serial.PermissionDenied:
			return CodePermissionDenied
		case serial.PortBusy, serial.PortNotFound, serial.InvalidSerialPort:
			return CodePositionUnavailable
		}
	}
	return CodePositionUnavailable
}

// NewSerialSource starts reading sentences from port. The source owns the
// port and closes it on Close.
func NewSerialSource(port io.ReadCloser, clock timeutil.Clock) *SerialSource {
	s := &SerialSource{
		port:    port,
		clock:   clock,
		updated: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *SerialSource) readLoop() {
	defer close(s.done)

	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] != '$' {
			continue
		}
		fix, ok := s.parseRMC(line)
		if !ok {
			continue
		}
		s.publish(fix)
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	s.mu.Lock()
	s.readErr = err
	close(s.updated)
	s.mu.Unlock()
	monitoring.Warnf("gps serial reader stopped: %v", err)
}

func (s *SerialSource) parseRMC(line string) (geo.Fix, bool) {
	sentence, err := nmea.Parse(line)
	if err != nil {
		monitoring.Debugf("skipping nmea sentence %q: %v", line, err)
		return geo.Fix{}, false
	}
	if sentence.DataType() != nmea.TypeRMC {
		return geo.Fix{}, false
	}
	rmc := sentence.(nmea.RMC)
	if rmc.Validity != nmea.ValidRMC {
		return geo.Fix{}, false
	}

	speed := rmc.Speed * knotsToMetersPerSecond
	ts := s.clock.Now()
	if rmc.Date.Valid && rmc.Time.Valid {
		ts = time.Date(century(rmc.Date.YY), time.Month(rmc.Date.MM), rmc.Date.DD,
			rmc.Time.Hour, rmc.Time.Minute, rmc.Time.Second, rmc.Time.Millisecond*int(time.Millisecond), time.UTC)
	}
	return geo.Fix{
		Latitude:  rmc.Latitude,
		Longitude: rmc.Longitude,
		Timestamp: ts,
		Speed:     &speed,
	}, true
}

func (s *SerialSource) publish(fix geo.Fix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = fix
	s.receivedAt = s.clock.Now()
	s.version++
	close(s.updated)
	s.updated = make(chan struct{})
}

// CurrentFix returns the cached fix if it is younger than opts.MaxFixAge,
// otherwise waits for the receiver to report a new one.
func (s *SerialSource) CurrentFix(ctx context.Context, opts Options) (geo.Fix, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	s.mu.Lock()
	if s.readErr != nil {
		err := s.readErr
		s.mu.Unlock()
		return geo.Fix{}, &ProviderError{Code: CodePositionUnavailable, Err: err}
	}
	if opts.MaxFixAge > 0 && s.version > 0 && s.clock.Now().Sub(s.receivedAt) <= opts.MaxFixAge {
		fix := s.latest
		s.mu.Unlock()
		return fix, nil
	}
	wait := s.updated
	s.mu.Unlock()

	select {
	case <-wait:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return geo.Fix{}, &ProviderError{Code: CodeTimeout, Err: ctx.Err()}
		}
		return geo.Fix{}, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return geo.Fix{}, &ProviderError{Code: CodePositionUnavailable, Err: s.readErr}
	}
	return s.latest, nil
}

// Close closes the port and waits for the reader to finish.
func (s *SerialSource) Close() error {
	err := s.port.Close()
	<-s.done
	return err
}

// century expands the two-digit NMEA year.
func century(yy int) int {
	if yy < 80 {
		return 2000 + yy
	}
	return 1900 + yy
}
