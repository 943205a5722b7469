package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Location son las coordenadas fijas de la caseta, tal como van en el wire.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Config struct {
	BackendURL   string
	WebsocketURL string
	TollBoothID  string
	Location     Location

	RFIDSerialPort string
	RFIDBaudRate   int
	QRCameraIndex  int

	ScanCooldown time.Duration
	MetricsPort  string
	RedisAddr    string
	LogLevel     string
}

func Load() Config {
	// .env opcional; si no existe se usan las variables de entorno
	_ = godotenv.Load()

	return Config{
		BackendURL:   getEnv("BACKEND_URL", "http://localhost:3001"),
		WebsocketURL: getEnv("WEBSOCKET_URL", "ws://localhost:3001"),
		TollBoothID:  getEnv("TOLL_BOOTH_ID", "TB001"),
		Location: Location{
			Lat: getEnvFloat("LATITUDE", 12.9716),
			Lng: getEnvFloat("LONGITUDE", 77.5946),
		},
		RFIDSerialPort: getEnv("RFID_SERIAL_PORT", "/dev/ttyUSB0"),
		RFIDBaudRate:   getEnvInt("RFID_BAUD_RATE", 9600),
		QRCameraIndex:  getEnvInt("QR_CAMERA_INDEX", 0),
		ScanCooldown:   time.Duration(getEnvInt("SCAN_COOLDOWN", 5)) * time.Second,
		MetricsPort:    getEnv("METRICS_PORT", "9100"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
}

// Validate rechaza configuraciones con las que la caseta no puede operar.
func (c Config) Validate() error {
	if !coordsValid(c.Location.Lat, c.Location.Lng) {
		return fmt.Errorf("invalid booth coordinates: lat=%v lng=%v", c.Location.Lat, c.Location.Lng)
	}
	if c.ScanCooldown <= 0 {
		return fmt.Errorf("scan cooldown must be positive, got %v", c.ScanCooldown)
	}
	if c.TollBoothID == "" {
		return fmt.Errorf("toll booth id must not be empty")
	}
	return nil
}

func coordsValid(lat, lng float64) bool {
	if lat == 0 && lng == 0 {
		return false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return false
	}
	return true
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}
