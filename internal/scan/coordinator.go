package scan

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/benbjohnson/clock"

	"tollbooth-agent/internal/config"
	"tollbooth-agent/internal/feedback"
	"tollbooth-agent/internal/observability"
	"tollbooth-agent/internal/sensor"
)

const (
	// idlePause es el respiro entre ciclos de escaneo.
	idlePause = 100 * time.Millisecond
	// evictInterval marca cada cuánto se barren los registros viejos del dedup.
	evictInterval = time.Minute
)

// Deduper decide si una lectura se procesa o se suprime por cooldown.
type Deduper interface {
	ShouldProcess(id string, now time.Time) bool
	EvictStale(now time.Time) int
}

// Reporter reporta un scan aceptado y devuelve el veredicto del backend.
type Reporter interface {
	ReportScan(ev Event) (Verdict, error)
}

// Notifier publica notificaciones fire-and-forget por el canal de eventos.
type Notifier interface {
	SendVehicleDetected(vehicleID string, ts time.Time)
	SendUnregisteredVehicle(vehicleID string, ts time.Time)
}

// Coordinator corre el ciclo de escaneo de la caseta: sondea sensores,
// deduplica, reporta al backend y dispara la señalización local.
type Coordinator struct {
	rfid sensor.Source // nil si el lector no inicializó
	qr   sensor.Source // nil si la cámara no inicializó

	dedup    Deduper
	reporter Reporter
	notifier Notifier
	fb       *feedback.Controller

	boothID  string
	location config.Location

	clk    clock.Clock
	logger *slog.Logger

	nextEvict time.Time
}

func NewCoordinator(cfg config.Config, rfid, qr sensor.Source, dedup Deduper, reporter Reporter, notifier Notifier, fb *feedback.Controller, clk clock.Clock, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		rfid:     rfid,
		qr:       qr,
		dedup:    dedup,
		reporter: reporter,
		notifier: notifier,
		fb:       fb,
		boothID:  cfg.TollBoothID,
		location: cfg.Location,
		clk:      clk,
		logger:   logger.With("component", "scan"),
	}
}

// Run ejecuta ciclos de escaneo hasta que ctx se cancele. Un ciclo que
// truene no detiene la caseta.
func (c *Coordinator) Run(ctx context.Context) {
	c.logger.Info("starting vehicle scanning loop",
		"rfid", c.rfid != nil, "camera", c.qr != nil)
	ticker := c.clk.Ticker(idlePause)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("scanning loop stopped")
			return
		case <-ticker.C:
			c.safeCycle()
			c.maybeEvict()
		}
	}
}

// safeCycle aísla un ciclo: un panic se registra, enciende el rojo de error
// local y el loop sigue con el siguiente ciclo.
func (c *Coordinator) safeCycle() {
	defer func() {
		if r := recover(); r != nil {
			observability.CycleFailures.Inc()
			c.logger.Error("scan cycle panicked", "panic", r, "stack", string(debug.Stack()))
			c.fb.Signal(feedback.Red, feedback.HoldError)
		}
	}()
	c.cycle()
}

func (c *Coordinator) cycle() {
	id, kind, ok := c.poll()
	if !ok {
		return
	}
	observability.ScansTotal.WithLabelValues(string(kind)).Inc()

	now := c.clk.Now()
	if !c.dedup.ShouldProcess(id, now) {
		c.logger.Info("scan suppressed, cooldown active", "vehicle", id)
		observability.ScansSuppressed.Inc()
		return
	}

	ev := BuildEvent(id, c.boothID, c.location, now, kind)
	verdict, err := c.reporter.ReportScan(ev)
	if err != nil {
		// el scan ya consumió su ventana de dedup; no se reintenta
		c.logger.Error("scan report failed", "vehicle", id, "error", err)
		c.fb.Signal(feedback.Yellow, feedback.HoldError)
		return
	}

	if verdict.Registered {
		c.logger.Info("vehicle detected", "vehicle", id, "registered", true, "source", string(kind))
		observability.Verdicts.WithLabelValues("registered").Inc()
		c.fb.Signal(feedback.Green, feedback.HoldVerdict)
		c.fb.Buzz(feedback.BuzzShort)
		c.notifier.SendVehicleDetected(id, now)
	} else {
		c.logger.Warn("unregistered vehicle detected", "vehicle", id, "source", string(kind))
		observability.Verdicts.WithLabelValues("unregistered").Inc()
		c.fb.Signal(feedback.Red, feedback.HoldVerdict)
		c.fb.Buzz(feedback.BuzzLong)
		c.notifier.SendUnregisteredVehicle(id, now)
	}
}

// poll prueba RFID primero; el QR sólo se consulta si el RFID no trajo nada.
func (c *Coordinator) poll() (string, sensor.Kind, bool) {
	if c.rfid != nil {
		if id, ok := c.rfid.Poll(); ok {
			return id, c.rfid.Kind(), true
		}
	}
	if c.qr != nil {
		if id, ok := c.qr.Poll(); ok {
			return id, c.qr.Kind(), true
		}
	}
	return "", "", false
}

// maybeEvict barre los registros vencidos del dedup a intervalos fijos para
// que el mapa no crezca con cada placa que pasa una sola vez.
func (c *Coordinator) maybeEvict() {
	now := c.clk.Now()
	if c.nextEvict.IsZero() {
		c.nextEvict = now.Add(evictInterval)
		return
	}
	if now.Before(c.nextEvict) {
		return
	}
	c.nextEvict = now.Add(evictInterval)
	if n := c.dedup.EvictStale(now); n > 0 {
		c.logger.Debug("evicted stale scan records", "count", n)
	}
}
