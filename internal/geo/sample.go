// Package geo turns raw position fixes into cleaned samples: haversine
// distance with a jitter floor, a physical-speed jump filter and a short
// moving-average speed smoother.
package geo

import (
	"math"
	"time"
)

// Fix is one position report as handed over by a location source.
type Fix struct {
	Latitude  float64
	Longitude float64
	Timestamp time.Time
	// Speed in m/s; nil when the source did not report one.
	Speed *float64
}

// SpeedOrZero returns the reported speed, or 0 when absent.
func (f Fix) SpeedOrZero() float64 {
	if f.Speed == nil || math.IsNaN(*f.Speed) {
		return 0
	}
	return *f.Speed
}

// GeoSample is a normalized fix. Samples are values; once appended to a
// track they are never modified.
type GeoSample struct {
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	TimestampMillis int64   `json:"timestamp"`
	RawSpeed        float64 `json:"rawSpeed"`
	SmoothedSpeed   float64 `json:"speed"`
}

// NewGeoSample validates the fix coordinates and builds a sample carrying
// the already smoothed speed.
func NewGeoSample(fix Fix, smoothed float64) (GeoSample, error) {
	s := GeoSample{
		Latitude:        fix.Latitude,
		Longitude:       fix.Longitude,
		TimestampMillis: fix.Timestamp.UnixMilli(),
		RawSpeed:        fix.SpeedOrZero(),
		SmoothedSpeed:   smoothed,
	}
	if !s.Valid() {
		return GeoSample{}, &InvalidSampleWarning{Latitude: fix.Latitude, Longitude: fix.Longitude}
	}
	return s, nil
}

// Valid reports whether both coordinates are finite and inside their ranges.
func (s GeoSample) Valid() bool {
	return validCoord(s.Latitude, 90) && validCoord(s.Longitude, 180)
}

// Time returns the sample timestamp.
func (s GeoSample) Time() time.Time {
	return time.UnixMilli(s.TimestampMillis)
}

// SpeedKmh is the smoothed speed in km/h rounded to 2 decimals.
func (s GeoSample) SpeedKmh() float64 {
	return Round(s.SmoothedSpeed*3.6, 2)
}

func validCoord(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -limit && v <= limit
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
