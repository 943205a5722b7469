package hw

import (
	"fmt"
	"log/slog"

	"github.com/stianeikeland/go-rpio/v4"
)

// Pines BCM de la caseta.
const (
	PinLEDGreen  = 18
	PinLEDRed    = 24
	PinLEDYellow = 25
	PinBuzzer    = 23
)

// Pin es una salida booleana sobre un pin BCM ya configurado como output.
type Pin struct {
	pin rpio.Pin
}

func (p Pin) Set(on bool) {
	if on {
		p.pin.High()
	} else {
		p.pin.Low()
	}
}

// GPIO agrupa las salidas físicas de la caseta. Abrirlo mapea /dev/gpiomem;
// Close libera el mapeo, así que las salidas deben apagarse antes.
type GPIO struct {
	Green  Pin
	Red    Pin
	Yellow Pin
	Buzzer Pin

	logger *slog.Logger
}

// OpenGPIO configura los cuatro pines como salida y los deja apagados.
func OpenGPIO(logger *slog.Logger) (*GPIO, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}
	g := &GPIO{
		Green:  newOutputPin(PinLEDGreen),
		Red:    newOutputPin(PinLEDRed),
		Yellow: newOutputPin(PinLEDYellow),
		Buzzer: newOutputPin(PinBuzzer),
		logger: logger.With("component", "hw.gpio"),
	}
	g.logger.Info("gpio initialized",
		"green", PinLEDGreen, "red", PinLEDRed, "yellow", PinLEDYellow, "buzzer", PinBuzzer)
	return g, nil
}

func newOutputPin(n int) Pin {
	p := rpio.Pin(n)
	p.Output()
	p.Low()
	return Pin{pin: p}
}

func (g *GPIO) Close() error {
	return rpio.Close()
}
