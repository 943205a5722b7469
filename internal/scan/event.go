package scan

import (
	"time"

	"tollbooth-agent/internal/config"
	"tollbooth-agent/internal/sensor"
)

// Event es un scan aceptado, listo para reportarse al backend. Vive sólo
// durante el ciclo que lo produjo.
type Event struct {
	VehicleID string
	BoothID   string
	Location  config.Location
	Timestamp time.Time
	Source    sensor.Kind
}

// Verdict es la determinación del backend para un scan reportado.
type Verdict struct {
	Registered bool
}

// BuildEvent arma el evento de un scan aceptado. Source es el sensor que
// realmente produjo la lectura, no el que estaba disponible.
func BuildEvent(vehicleID, boothID string, loc config.Location, ts time.Time, source sensor.Kind) Event {
	return Event{
		VehicleID: vehicleID,
		BoothID:   boothID,
		Location:  loc,
		Timestamp: ts,
		Source:    source,
	}
}
