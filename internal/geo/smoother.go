package geo

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// SpeedWindowSize is the number of recent speeds averaged by SpeedSmoother.
const SpeedWindowSize = 5

// SpeedSmoother keeps the most recent speeds of one track and returns their
// moving average. It is not safe for concurrent use; each track owns one.
type SpeedSmoother struct {
	window []float64
	size   int
}

func NewSpeedSmoother() *SpeedSmoother {
	return &SpeedSmoother{window: make([]float64, 0, SpeedWindowSize), size: SpeedWindowSize}
}

// Smooth adds raw (m/s) to the window, evicting the oldest value when the
// window is full, and returns the mean including raw. NaN counts as 0.
func (s *SpeedSmoother) Smooth(raw float64) float64 {
	if math.IsNaN(raw) {
		raw = 0
	}
	if len(s.window) == s.size {
		copy(s.window, s.window[1:])
		s.window = s.window[:s.size-1]
	}
	s.window = append(s.window, raw)
	return stat.Mean(s.window, nil)
}

// Window returns a copy of the current window, oldest first.
func (s *SpeedSmoother) Window() []float64 {
	out := make([]float64, len(s.window))
	copy(out, s.window)
	return out
}

func (s *SpeedSmoother) Len() int {
	return len(s.window)
}
