package link

import (
	"time"

	"tollbooth-agent/internal/config"
)

// HardwareInfo describe qué periféricos inicializaron bien al arrancar.
// Se fija una vez y se reporta tal cual en cada hardware_status.
type HardwareInfo struct {
	RFID   bool `json:"rfid"`
	Camera bool `json:"camera"`
	GPIO   bool `json:"gpio"`
}

/* =========================================================
   Mensajes salientes
   ========================================================= */

// hardware_status: identidad y salud de la caseta, se manda al conectar y
// cuando el backend lo pide.
type statusPayload struct {
	Type        string          `json:"type"`
	TollBoothID string          `json:"tollBoothId"`
	Status      string          `json:"status"`
	Location    config.Location `json:"location"`
	Timestamp   float64         `json:"timestamp"`
	Hardware    HardwareInfo    `json:"hardware"`
}

// vehicle_detected: un vehículo registrado pasó por la caseta.
type vehicleDetectedPayload struct {
	Type       string  `json:"type"`
	VehicleID  string  `json:"vehicleId"`
	Registered bool    `json:"registered"`
	Timestamp  float64 `json:"timestamp"`
}

// unregistered_vehicle: un vehículo no registrado pasó por la caseta.
type unregisteredVehiclePayload struct {
	Type      string  `json:"type"`
	VehicleID string  `json:"vehicleId"`
	Timestamp float64 `json:"timestamp"`
}

// unixSeconds serializa timestamps como epoch en segundos con fracción.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
