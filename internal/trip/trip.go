// Package trip holds the vehicle and route configuration a user registers
// before recording.
package trip

import (
	"math"
	"strings"
)

var defaultMass = map[string]float64{
	"car":  1500,
	"bike": 200,
}

// MassForType returns the default vehicle mass in kg for a known vehicle
// type, or 0.
func MassForType(vehicleType string) float64 {
	return defaultMass[strings.ToLower(strings.TrimSpace(vehicleType))]
}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l *Location) valid() bool {
	return l != nil && !math.IsNaN(l.Lat) && !math.IsNaN(l.Lng) &&
		math.Abs(l.Lat) <= 90 && math.Abs(l.Lng) <= 180
}

type Details struct {
	VehicleType         string    `json:"vehicleType"`
	VehicleNumber       string    `json:"vehicleNumber"`
	VehicleMass         float64   `json:"vehicleMass"`
	CurrentLocation     *Location `json:"currentLocation"`
	DestinationLocation *Location `json:"destinationLocation"`
}

// ApplyDefaultMass fills in the mass for a known vehicle type when none was
// given.
func (d *Details) ApplyDefaultMass() {
	if d.VehicleMass <= 0 {
		d.VehicleMass = MassForType(d.VehicleType)
	}
}

// Validate reports every absent field at once.
func (d Details) Validate() error {
	var missing []string
	if strings.TrimSpace(d.VehicleType) == "" {
		missing = append(missing, FieldVehicleType)
	}
	if strings.TrimSpace(d.VehicleNumber) == "" {
		missing = append(missing, FieldVehicleNumber)
	}
	if d.VehicleMass <= 0 || math.IsNaN(d.VehicleMass) {
		missing = append(missing, FieldVehicleMass)
	}
	if !d.CurrentLocation.valid() {
		missing = append(missing, FieldCurrentLocation)
	}
	if !d.DestinationLocation.valid() {
		missing = append(missing, FieldDestinationLocation)
	}
	if len(missing) > 0 {
		return &MissingFieldError{Fields: missing}
	}
	return nil
}

// Ref identifies a registered trip on the backend.
type Ref struct {
	PathID    string `json:"pathId"`
	VehicleID string `json:"vehicleId"`
}
