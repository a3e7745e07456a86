// Package submit hands finished tracks to the backend, over HTTP or through
// an NSQ topic.
package submit

import (
	"context"

	"route-tracker/internal/geo"
	"route-tracker/internal/recorder"
	"route-tracker/internal/trip"
)

// SamplePayload is one history entry as the backend stores it. Speed is in
// km/h.
type SamplePayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
	Speed     float64 `json:"speed"`
}

type Payload struct {
	LocationHistory []SamplePayload `json:"locationHistory"`
	PathID          string          `json:"pathId"`
	UserID          string          `json:"userId"`
	VehicleID       string          `json:"vehicleId"`
	TotalDistanceKm float64         `json:"totalDistanceKm"`
}

// Receipt is the backend acknowledgement.
type Receipt struct {
	Message string `json:"message"`
}

type Submitter interface {
	Submit(ctx context.Context, token string, p Payload) (Receipt, error)
}

// BuildPayload converts a finished track. Speeds become km/h and the total
// distance is rounded to 2 decimals.
func BuildPayload(tr recorder.Track, ref trip.Ref, userID string) Payload {
	history := make([]SamplePayload, 0, len(tr.History))
	for _, s := range tr.History {
		history = append(history, SamplePayload{
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Timestamp: s.TimestampMillis,
			Speed:     s.SpeedKmh(),
		})
	}
	return Payload{
		LocationHistory: history,
		PathID:          ref.PathID,
		UserID:          userID,
		VehicleID:       ref.VehicleID,
		TotalDistanceKm: geo.Round(tr.TotalDistanceKm, 2),
	}
}
