package geo

import "math"

// MaxPlausibleSpeed is the speed ceiling in m/s (about 500 km/h).
const MaxPlausibleSpeed = 139.0

// CheckJump decides whether the distance between prev and next may be added
// to a running total. It returns *NonMonotonicTimeWarning when next is not
// later than prev and *ImplausibleJumpWarning when the implied speed exceeds
// MaxPlausibleSpeed or is not a finite number.
func CheckJump(prev, next GeoSample, distanceKm float64) error {
	elapsed := float64(next.TimestampMillis-prev.TimestampMillis) / 1000
	if elapsed <= 0 {
		return &NonMonotonicTimeWarning{PrevMillis: prev.TimestampMillis, NextMillis: next.TimestampMillis}
	}

	implied := distanceKm * 1000 / elapsed
	if math.IsNaN(implied) || math.IsInf(implied, 0) || implied > MaxPlausibleSpeed {
		return &ImplausibleJumpWarning{DistanceKm: distanceKm, ElapsedSec: elapsed, ImpliedSpeed: implied}
	}
	return nil
}

// IsPhysicallyPlausible reports whether CheckJump accepts the pair.
func IsPhysicallyPlausible(prev, next GeoSample, distanceKm float64) bool {
	return CheckJump(prev, next, distanceKm) == nil
}
