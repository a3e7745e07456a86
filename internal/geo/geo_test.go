package geo

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// metersPerDegreeLat is the length of one degree of latitude on a sphere of
// EarthRadiusMeters.
const metersPerDegreeLat = EarthRadiusMeters * math.Pi / 180

func sampleAt(lat, lng float64, ms int64) GeoSample {
	return GeoSample{Latitude: lat, Longitude: lng, TimestampMillis: ms}
}

func TestDistanceKmIdenticalCoordinates(t *testing.T) {
	a := sampleAt(23.0225, 72.5714, 0)
	b := sampleAt(23.0225, 72.5714, 1000)

	d, err := DistanceKm(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d)
}

func TestDistanceKmBelowJitterFloor(t *testing.T) {
	a := sampleAt(23.0225, 72.5714, 0)
	// 0.3 m north
	b := sampleAt(23.0225+0.3/metersPerDegreeLat, 72.5714, 1000)

	d, err := DistanceKm(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d)

	again, err := DistanceKm(a, b)
	require.NoError(t, err)
	assert.Equal(t, d, again)
}

func TestDistanceKmTenMeters(t *testing.T) {
	a := sampleAt(23.0225, 72.5714, 0)
	b := sampleAt(23.0225+10/metersPerDegreeLat, 72.5714, 1000)

	d, err := DistanceKm(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, d, 1e-6)
}

func TestDistanceKmKnownCities(t *testing.T) {
	// Jakarta to Bandung is roughly 115-120 km in a straight line.
	d, err := DistanceKm(sampleAt(-6.2, 106.816, 0), sampleAt(-6.9175, 107.6191, 0))
	require.NoError(t, err)
	assert.Greater(t, d, 100.0)
	assert.Less(t, d, 140.0)
}

func TestDistanceKmRoundsToSixDecimals(t *testing.T) {
	d, err := DistanceKm(sampleAt(10, 10, 0), sampleAt(10.123456789, 10.987654321, 0))
	require.NoError(t, err)
	assert.Equal(t, Round(d, 6), d)
}

func TestDistanceKmInvalidSample(t *testing.T) {
	cases := []GeoSample{
		sampleAt(math.NaN(), 10, 0),
		sampleAt(10, math.Inf(1), 0),
		sampleAt(91, 10, 0),
		sampleAt(10, -181, 0),
	}
	for _, bad := range cases {
		d, err := DistanceKm(sampleAt(10, 10, 0), bad)
		assert.Equal(t, 0.0, d)
		var w *InvalidSampleWarning
		assert.True(t, errors.As(err, &w), "expected InvalidSampleWarning for %+v", bad)

		d, err = DistanceKm(bad, sampleAt(10, 10, 0))
		assert.Equal(t, 0.0, d)
		assert.Error(t, err)
	}
}

func TestDistanceKmNeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		a := sampleAt(rng.Float64()*180-90, rng.Float64()*360-180, 0)
		b := sampleAt(rng.Float64()*180-90, rng.Float64()*360-180, 0)
		d, err := DistanceKm(a, b)
		require.NoError(t, err)
		require.GreaterOrEqual(t, d, 0.0)
	}
}

func TestDistanceKmNearAntipodal(t *testing.T) {
	pairs := [][2]GeoSample{
		{sampleAt(0.02, 0, 0), sampleAt(-0.02, 180, 1000)},
		{sampleAt(0, 0, 0), sampleAt(0, 180, 1000)},
		{sampleAt(90, 0, 0), sampleAt(-90, 0, 1000)},
		{sampleAt(45, -30, 0), sampleAt(-45, 150, 1000)},
	}
	maxKm := math.Pi * EarthRadiusMeters / 1000
	for _, p := range pairs {
		d, err := DistanceKm(p[0], p[1])
		require.NoError(t, err)
		require.False(t, math.IsNaN(d), "%v -> %v", p[0], p[1])
		assert.GreaterOrEqual(t, d, 0.0)
		assert.LessOrEqual(t, d, maxKm+1e-6)

		var w *ImplausibleJumpWarning
		assert.True(t, errors.As(CheckJump(p[0], p[1], d), &w))
	}
}

func TestCheckJumpNonFiniteDistance(t *testing.T) {
	a := sampleAt(23.0225, 72.5714, 0)
	b := sampleAt(23.0226, 72.5714, 1000)

	for _, d := range []float64{math.NaN(), math.Inf(1)} {
		var w *ImplausibleJumpWarning
		require.True(t, errors.As(CheckJump(a, b, d), &w))
		assert.False(t, IsPhysicallyPlausible(a, b, d))
	}
}

func TestCheckJumpZeroElapsed(t *testing.T) {
	a := sampleAt(23.0225, 72.5714, 5000)
	b := sampleAt(23.0226, 72.5714, 5000)

	for _, d := range []float64{0, 0.001, 5} {
		err := CheckJump(a, b, d)
		var w *NonMonotonicTimeWarning
		require.True(t, errors.As(err, &w))
		assert.False(t, IsPhysicallyPlausible(a, b, d))
	}
}

func TestCheckJumpBackwardsTime(t *testing.T) {
	a := sampleAt(23.0225, 72.5714, 5000)
	b := sampleAt(23.0225, 72.5714, 4000)

	var w *NonMonotonicTimeWarning
	assert.True(t, errors.As(CheckJump(a, b, 0), &w))
}

func TestCheckJumpTooFast(t *testing.T) {
	a := sampleAt(23.0225, 72.5714, 0)
	b := sampleAt(23.0225+1000/metersPerDegreeLat, 72.5714, 1000)

	d, err := DistanceKm(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, d, 1e-4)

	err = CheckJump(a, b, d)
	var w *ImplausibleJumpWarning
	require.True(t, errors.As(err, &w))
	assert.InDelta(t, 1000, w.ImpliedSpeed, 0.1)
}

func TestCheckJumpCeiling(t *testing.T) {
	a := sampleAt(0, 0, 0)
	b := sampleAt(0, 0, 10_000)

	// 1.25 km in 10 s is 125 m/s, 1.5 km is 150 m/s.
	assert.True(t, IsPhysicallyPlausible(a, b, 1.25))
	assert.False(t, IsPhysicallyPlausible(a, b, 1.5))
}

func TestCheckJumpPlausible(t *testing.T) {
	a := sampleAt(23.0225, 72.5714, 0)
	b := sampleAt(23.0225+10/metersPerDegreeLat, 72.5714, 1000)
	d, _ := DistanceKm(a, b)

	assert.NoError(t, CheckJump(a, b, d))
}

func TestSpeedSmootherFirstValueUnchanged(t *testing.T) {
	s := NewSpeedSmoother()
	assert.Equal(t, 7.5, s.Smooth(7.5))
	assert.Equal(t, 1, s.Len())
}

func TestSpeedSmootherEvictsOldest(t *testing.T) {
	s := NewSpeedSmoother()
	values := []float64{1, 2, 3, 4, 5, 11}
	var got float64
	for _, v := range values {
		got = s.Smooth(v)
		assert.LessOrEqual(t, s.Len(), SpeedWindowSize)
	}

	assert.Equal(t, []float64{2, 3, 4, 5, 11}, s.Window())
	assert.InDelta(t, (2.0+3+4+5+11)/5, got, 1e-12)
}

func TestSpeedSmootherNaNIsZero(t *testing.T) {
	s := NewSpeedSmoother()
	s.Smooth(4)
	assert.Equal(t, 2.0, s.Smooth(math.NaN()))
}

func TestSpeedSmootherWindowBoundedOverLongRun(t *testing.T) {
	s := NewSpeedSmoother()
	for i := 0; i < 100; i++ {
		s.Smooth(float64(i))
		require.LessOrEqual(t, s.Len(), SpeedWindowSize)
	}
	assert.Equal(t, []float64{95, 96, 97, 98, 99}, s.Window())
}

func TestNewGeoSample(t *testing.T) {
	speed := 12.5
	ts := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	s, err := NewGeoSample(Fix{Latitude: 23.0225, Longitude: 72.5714, Timestamp: ts, Speed: &speed}, 10)
	require.NoError(t, err)
	assert.Equal(t, ts.UnixMilli(), s.TimestampMillis)
	assert.Equal(t, 12.5, s.RawSpeed)
	assert.Equal(t, 10.0, s.SmoothedSpeed)
	assert.Equal(t, 36.0, s.SpeedKmh())
	assert.True(t, s.Time().Equal(ts))
}

func TestNewGeoSampleMissingSpeed(t *testing.T) {
	s, err := NewGeoSample(Fix{Latitude: 1, Longitude: 2, Timestamp: time.UnixMilli(1)}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.RawSpeed)
}

func TestNewGeoSampleRejectsOutOfRange(t *testing.T) {
	_, err := NewGeoSample(Fix{Latitude: 95, Longitude: 2}, 0)
	var w *InvalidSampleWarning
	assert.True(t, errors.As(err, &w))
}

func TestSpeedKmhRounding(t *testing.T) {
	s := GeoSample{SmoothedSpeed: 2.777}
	assert.Equal(t, 10.0, s.SpeedKmh())
}
