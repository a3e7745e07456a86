package geo

import "math"

const (
	EarthRadiusMeters = 6371000.0
	// JitterFloorMeters is the distance under which two fixes are treated
	// as the same position.
	JitterFloorMeters = 0.5
)

// DistanceKm returns the great-circle distance between a and b in km,
// rounded to 6 decimals. Identical coordinates and moves under the jitter
// floor return exactly 0. An invalid sample yields 0 with an
// *InvalidSampleWarning.
func DistanceKm(a, b GeoSample) (float64, error) {
	if !a.Valid() {
		return 0, &InvalidSampleWarning{Latitude: a.Latitude, Longitude: a.Longitude}
	}
	if !b.Valid() {
		return 0, &InvalidSampleWarning{Latitude: b.Latitude, Longitude: b.Longitude}
	}
	if a.Latitude == b.Latitude && a.Longitude == b.Longitude {
		return 0, nil
	}

	meters := haversineMeters(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	if meters < JitterFloorMeters {
		return 0, nil
	}
	return Round(meters/1000, 6), nil
}

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	// Rounding can push a just past 1 for near-antipodal points.
	a = math.Max(0, math.Min(1, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}
