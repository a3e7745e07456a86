package geo

import "fmt"

// InvalidSampleWarning marks a sample whose coordinates are missing or out
// of range. Distance calls involving it degrade to 0.
type InvalidSampleWarning struct {
	Latitude  float64
	Longitude float64
}

func (w *InvalidSampleWarning) Error() string {
	return fmt.Sprintf("invalid sample: lat=%v lng=%v", w.Latitude, w.Longitude)
}

// NonMonotonicTimeWarning is returned when the next sample is not strictly
// later than the previous one.
type NonMonotonicTimeWarning struct {
	PrevMillis int64
	NextMillis int64
}

func (w *NonMonotonicTimeWarning) Error() string {
	return fmt.Sprintf("non-monotonic timestamps: %d -> %d", w.PrevMillis, w.NextMillis)
}

// ImplausibleJumpWarning is returned when a pair implies a speed above
// MaxPlausibleSpeed.
type ImplausibleJumpWarning struct {
	DistanceKm   float64
	ElapsedSec   float64
	ImpliedSpeed float64
}

func (w *ImplausibleJumpWarning) Error() string {
	return fmt.Sprintf("implausible jump: %.3f km in %.3f s (%.1f m/s)", w.DistanceKm, w.ElapsedSec, w.ImpliedSpeed)
}
