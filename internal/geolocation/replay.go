package geolocation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tkrajina/gpxgo/gpx"

	"route-tracker/internal/geo"
)

// ReplaySource hands out the points of a recorded GPX drive one per request.
// Speeds are derived from consecutive points since GPX carries none.
type ReplaySource struct {
	mu     sync.Mutex
	points []gpx.GPXPoint
	next   int
}

func OpenReplay(path string) (*ReplaySource, error) {
	g, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse gpx %s: %w", path, err)
	}
	return newReplay(g)
}

func ParseReplay(data []byte) (*ReplaySource, error) {
	g, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse gpx: %w", err)
	}
	return newReplay(g)
}

func newReplay(g *gpx.GPX) (*ReplaySource, error) {
	var points []gpx.GPXPoint
	for _, track := range g.Tracks {
		for _, segment := range track.Segments {
			points = append(points, segment.Points...)
		}
	}
	if len(points) == 0 {
		return nil, errors.New("gpx has no track points")
	}
	return &ReplaySource{points: points}, nil
}

func (r *ReplaySource) CurrentFix(ctx context.Context, _ Options) (geo.Fix, error) {
	if err := ctx.Err(); err != nil {
		return geo.Fix{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.next >= len(r.points) {
		return geo.Fix{}, &ProviderError{Code: CodePositionUnavailable, Err: errors.New("replay finished")}
	}

	p := r.points[r.next]
	fix := geo.Fix{Latitude: p.Latitude, Longitude: p.Longitude, Timestamp: p.Timestamp}
	if r.next > 0 {
		prev := r.points[r.next-1]
		if dt := p.Timestamp.Sub(prev.Timestamp).Seconds(); dt > 0 {
			km, err := geo.DistanceKm(
				geo.GeoSample{Latitude: prev.Latitude, Longitude: prev.Longitude},
				geo.GeoSample{Latitude: p.Latitude, Longitude: p.Longitude},
			)
			if err == nil {
				speed := km * 1000 / dt
				fix.Speed = &speed
			}
		}
	}
	r.next++
	return fix, nil
}

// Remaining is the number of points not yet replayed.
func (r *ReplaySource) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.points) - r.next
}

// Close is a no-op; the replay holds no OS resources.
func (r *ReplaySource) Close() error { return nil }
