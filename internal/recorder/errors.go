package recorder

import (
	"route-tracker/internal/geolocation"
)

// UnsupportedEnvironmentError means the device has no location source at
// all. It is fatal to Start.
type UnsupportedEnvironmentError struct{}

func (*UnsupportedEnvironmentError) Error() string {
	return "geolocation is not supported on this device"
}

// LocationUnavailableError is a failed fix request. During recording it is
// kept as session status and the loop carries on.
type LocationUnavailableError struct {
	Code  geolocation.ErrorCode
	Cause error
}

func (e *LocationUnavailableError) Error() string {
	if e.Cause != nil {
		return e.Code.Message() + " (" + e.Cause.Error() + ")"
	}
	return e.Code.Message()
}

func (e *LocationUnavailableError) Unwrap() error { return e.Cause }

func unavailable(err error) *LocationUnavailableError {
	return &LocationUnavailableError{Code: geolocation.CodeOf(err), Cause: err}
}
