// Package export renders a track as GeoJSON or GPX for maps and other
// tools.
package export

import (
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tkrajina/gpxgo/gpx"

	"route-tracker/internal/geo"
	"route-tracker/internal/recorder"
)

var ErrEmptyTrack = errors.New("track has no samples")

// GeoJSON returns a FeatureCollection holding the path as a LineString
// followed by one Point feature per sample carrying its time and speed.
func GeoJSON(tr recorder.Track) ([]byte, error) {
	if len(tr.History) == 0 {
		return nil, ErrEmptyTrack
	}

	fc := geojson.NewFeatureCollection()

	var path orb.Geometry
	if len(tr.History) == 1 {
		s := tr.History[0]
		path = orb.Point{s.Longitude, s.Latitude}
	} else {
		line := make(orb.LineString, 0, len(tr.History))
		for _, s := range tr.History {
			line = append(line, orb.Point{s.Longitude, s.Latitude})
		}
		path = line
	}
	route := geojson.NewFeature(path)
	route.Properties["kind"] = "route"
	route.Properties["totalDistanceKm"] = geo.Round(tr.TotalDistanceKm, 2)
	route.Properties["samples"] = len(tr.History)
	route.Properties["rejected"] = tr.Rejected
	if tr.Details.VehicleNumber != "" {
		route.Properties["vehicleNumber"] = tr.Details.VehicleNumber
	}
	if !tr.StartedAt.IsZero() {
		route.Properties["startedAt"] = tr.StartedAt.UTC().Format(time.RFC3339)
	}
	if !tr.EndedAt.IsZero() {
		route.Properties["endedAt"] = tr.EndedAt.UTC().Format(time.RFC3339)
	}
	fc.Append(route)

	for _, s := range tr.History {
		f := geojson.NewFeature(orb.Point{s.Longitude, s.Latitude})
		f.Properties["kind"] = "sample"
		f.Properties["timestamp"] = s.TimestampMillis
		f.Properties["speedKmh"] = s.SpeedKmh()
		fc.Append(f)
	}
	return fc.MarshalJSON()
}

// GPX returns the track as a single-segment GPX 1.1 document.
func GPX(tr recorder.Track, name string) ([]byte, error) {
	if len(tr.History) == 0 {
		return nil, ErrEmptyTrack
	}

	points := make([]gpx.GPXPoint, 0, len(tr.History))
	for _, s := range tr.History {
		points = append(points, gpx.GPXPoint{
			Point:     gpx.Point{Latitude: s.Latitude, Longitude: s.Longitude},
			Timestamp: s.Time().UTC(),
		})
	}

	doc := &gpx.GPX{
		Version: "1.1",
		Creator: "route-tracker",
		Tracks: []gpx.GPXTrack{{
			Name:        name,
			Description: fmt.Sprintf("%.2f km", geo.Round(tr.TotalDistanceKm, 2)),
			Segments:    []gpx.GPXTrackSegment{{Points: points}},
		}},
	}
	return doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
}
