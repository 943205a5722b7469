package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tollbooth-agent/internal/config"
	"tollbooth-agent/internal/observability"
	"tollbooth-agent/internal/scan"
)

// reportTimeout acota todo el reporte: conexión, envío y respuesta.
const reportTimeout = 5 * time.Second

// ErrUnreachable indica que el backend no contestó dentro del timeout o que
// la conexión falló antes de obtener un status.
var ErrUnreachable = errors.New("backend unreachable")

// RejectedError indica que el backend contestó pero rechazó el scan.
type RejectedError struct {
	StatusCode int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("backend rejected scan: status %d", e.StatusCode)
}

// Client reporta scans aceptados al backend por HTTP. Un reporte por scan,
// sin retries: el dedup ya decidió que este scan se procesa una sola vez.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: reportTimeout},
	}
}

/* =========================================================
   Formato de reporte
   ========================================================= */

type scanRequest struct {
	VehicleID   string          `json:"vehicleId"`
	TollBoothID string          `json:"tollBoothId"`
	Location    config.Location `json:"location"`
	Timestamp   float64         `json:"timestamp"`
	ScanType    string          `json:"scanType"`
}

type scanResponse struct {
	Registered bool `json:"registered"`
}

// unixSeconds serializa el timestamp como epoch en segundos con fracción,
// que es lo que el backend espera.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

/* =========================================================
   Reporte
   ========================================================= */

// ReportScan reporta un scan aceptado y devuelve el veredicto del backend.
// Cualquier error deja el scan sin reportar; el que llama decide la señal
// local, nunca un reintento.
func (c *Client) ReportScan(ev scan.Event) (scan.Verdict, error) {
	body, err := json.Marshal(scanRequest{
		VehicleID:   ev.VehicleID,
		TollBoothID: ev.BoothID,
		Location:    ev.Location,
		Timestamp:   unixSeconds(ev.Timestamp),
		ScanType:    string(ev.Source),
	})
	if err != nil {
		observability.ReportErrors.WithLabelValues("encode").Inc()
		return scan.Verdict{}, fmt.Errorf("encode scan: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Post(c.baseURL+"/api/hardware/scan", "application/json", bytes.NewReader(body))
	observability.ObserveReportLatency(start)
	if err != nil {
		observability.ReportErrors.WithLabelValues("unreachable").Inc()
		return scan.Verdict{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observability.ReportErrors.WithLabelValues("rejected").Inc()
		return scan.Verdict{}, &RejectedError{StatusCode: resp.StatusCode}
	}

	var out scanResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		observability.ReportErrors.WithLabelValues("decode").Inc()
		return scan.Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	return scan.Verdict{Registered: out.Registered}, nil
}
