package recorder

import (
	"errors"
	"time"

	"route-tracker/internal/geo"
	"route-tracker/internal/trip"
)

// Track is the product of one recording session. The recorder owns it while
// recording; after Stop it is handed off and never touched again.
type Track struct {
	Details         trip.Details
	History         []geo.GeoSample
	TotalDistanceKm float64
	StartedAt       time.Time
	EndedAt         time.Time
	// Rejected counts distance increments suppressed by the jump filter.
	Rejected int
}

// Last returns the most recent sample.
func (t *Track) Last() (geo.GeoSample, bool) {
	if len(t.History) == 0 {
		return geo.GeoSample{}, false
	}
	return t.History[len(t.History)-1], true
}

// add appends sample and grows the running distance when the step from the
// previous sample is plausible. The returned error is the jump warning for a
// suppressed increment; the sample is appended regardless.
func (t *Track) add(sample geo.GeoSample) error {
	var warn error
	if prev, ok := t.Last(); ok {
		d, err := geo.DistanceKm(prev, sample)
		switch {
		case err != nil:
			warn = err
		default:
			if err := geo.CheckJump(prev, sample, d); err != nil {
				t.Rejected++
				warn = err
			} else {
				t.TotalDistanceKm += d
			}
		}
	}
	t.History = append(t.History, sample)
	return warn
}

func (t *Track) clone() Track {
	c := *t
	c.History = append([]geo.GeoSample(nil), t.History...)
	return c
}

func isJumpWarning(err error) bool {
	var nm *geo.NonMonotonicTimeWarning
	var ij *geo.ImplausibleJumpWarning
	return errors.As(err, &nm) || errors.As(err, &ij)
}
