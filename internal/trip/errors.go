package trip

import "strings"

const (
	FieldVehicleType         = "Vehicle Type"
	FieldVehicleNumber       = "Vehicle Number"
	FieldVehicleMass         = "Vehicle Mass"
	FieldCurrentLocation     = "Current Location"
	FieldDestinationLocation = "Destination Location"
)

// MissingFieldError names the trip fields that still need a value, in form
// order.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return "Please fill in the following fields: " + strings.Join(e.Fields, ", ")
}
