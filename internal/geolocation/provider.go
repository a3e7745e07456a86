// Package geolocation supplies position fixes to the recorder from a GPS
// receiver on a serial port or from a recorded GPX drive.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"route-tracker/internal/geo"
)

// Options mirror what the recorder asks of a source on every request.
type Options struct {
	HighAccuracy bool
	// MaxFixAge is how old a cached fix may be; 0 demands a fresh one.
	MaxFixAge time.Duration
	Timeout   time.Duration
}

func DefaultOptions() Options {
	return Options{HighAccuracy: true, MaxFixAge: 0, Timeout: 10 * time.Second}
}

// Provider is the host geolocation capability.
type Provider interface {
	CurrentFix(ctx context.Context, opts Options) (geo.Fix, error)
}

// ErrNoSource is returned by Open when no location source is configured.
var ErrNoSource = errors.New("no location source available")

type ErrorCode int

const (
	CodeUnknown ErrorCode = iota
	CodePermissionDenied
	CodePositionUnavailable
	CodeTimeout
)

func (c ErrorCode) String() string {
	switch c {
	case CodePermissionDenied:
		return "permission-denied"
	case CodePositionUnavailable:
		return "position-unavailable"
	case CodeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Message is the human-readable cause shown to the user.
func (c ErrorCode) Message() string {
	switch c {
	case CodePermissionDenied:
		return "Location access was denied."
	case CodePositionUnavailable:
		return "Location information is unavailable."
	case CodeTimeout:
		return "The request to get the location timed out."
	default:
		return "An unknown error occurred while getting the location."
	}
}

// ProviderError is a failed fix request.
type ProviderError struct {
	Code ErrorCode
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// CodeOf extracts the provider error code, treating context deadline as a
// timeout.
func CodeOf(err error) ErrorCode {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return CodeUnknown
}
