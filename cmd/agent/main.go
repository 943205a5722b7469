package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"

	"tollbooth-agent/internal/backend"
	"tollbooth-agent/internal/config"
	"tollbooth-agent/internal/dedup"
	"tollbooth-agent/internal/feedback"
	"tollbooth-agent/internal/hw"
	"tollbooth-agent/internal/link"
	"tollbooth-agent/internal/observability"
	"tollbooth-agent/internal/scan"
	"tollbooth-agent/internal/sensor"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.LogLevel)
	logger.Info("Starting toll booth agent...", "booth", cfg.TollBoothID)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.New()

	go observability.StartMetricsServer(cfg.MetricsPort)

	// ----- salidas (LEDs y buzzer) -----
	// si el GPIO no levanta, la caseta opera sin señalización física
	gpioOK := false
	var green, red, yellow, buzzer feedback.Line = feedback.NopLine{}, feedback.NopLine{}, feedback.NopLine{}, feedback.NopLine{}
	gpio, err := hw.OpenGPIO(logger)
	if err != nil {
		logger.Error("gpio init failed, feedback disabled", "error", err)
	} else {
		gpioOK = true
		green, red, yellow, buzzer = gpio.Green, gpio.Red, gpio.Yellow, gpio.Buzzer
	}
	fb := feedback.NewController(green, red, yellow, buzzer, clk, logger)

	// ----- sensores -----
	// cada sensor que falle se queda en nil y el coordinador lo omite
	var rfidSrc, qrSrc sensor.Source
	rfidDrv, err := hw.OpenRFID(cfg.RFIDSerialPort, cfg.RFIDBaudRate, logger)
	if err != nil {
		logger.Error("rfid init failed, scanning without rfid", "port", cfg.RFIDSerialPort, "error", err)
	} else {
		logger.Info("rfid reader connected", "port", cfg.RFIDSerialPort)
		rfidSrc = sensor.NewRFID(rfidDrv, logger)
	}
	cam, err := hw.OpenCamera(cfg.QRCameraIndex, logger)
	if err != nil {
		logger.Error("camera init failed, scanning without qr", "index", cfg.QRCameraIndex, "error", err)
	} else {
		qrSrc = sensor.NewQR(cam, logger)
	}

	// ----- dedup -----
	var deduper scan.Deduper
	if cfg.RedisAddr != "" {
		rt, err := dedup.NewRedisTracker(cfg.RedisAddr, cfg.TollBoothID, cfg.ScanCooldown)
		if err != nil {
			logger.Error("redis init failed, using in-memory dedup", "error", err)
			deduper = dedup.NewTracker(cfg.ScanCooldown)
		} else {
			defer rt.Close()
			deduper = rt
		}
	} else {
		deduper = dedup.NewTracker(cfg.ScanCooldown)
	}

	// ----- canal de eventos -----
	info := link.HardwareInfo{RFID: rfidSrc != nil, Camera: qrSrc != nil, GPIO: gpioOK}
	channel := link.NewClient(cfg, info, scan.NewCommands(fb, logger), clk, logger)
	go channel.Run(ctx)

	// ----- coordinador -----
	reporter := backend.NewClient(cfg.BackendURL)
	coord := scan.NewCoordinator(cfg, rfidSrc, qrSrc, deduper, reporter, channel, fb, clk, logger)
	coord.Run(ctx)

	// shutdown: cerrar sensores primero, apagar salidas con los handles de
	// GPIO todavía válidos, y liberar el GPIO al final
	logger.Info("Stopping toll booth agent")
	if rfidDrv != nil {
		_ = rfidDrv.Close()
	}
	if cam != nil {
		_ = cam.Close()
	}
	fb.AllOff()
	if gpio != nil {
		_ = gpio.Close()
	}
	logger.Info("Toll booth agent stopped")
}
