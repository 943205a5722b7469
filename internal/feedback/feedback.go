package feedback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Color nombra un canal de LED de la caseta.
type Color string

const (
	Green  Color = "green"
	Red    Color = "red"
	Yellow Color = "yellow"
)

// Duraciones de la política de feedback de la caseta.
const (
	HoldVerdict = 2 * time.Second // LED tras veredicto registrado/no registrado
	HoldError   = 1 * time.Second // LED tras error de reporte o de ciclo
	HoldTest    = 1 * time.Second // LED por comando test_led

	BuzzShort       = 300 * time.Millisecond // vehículo registrado
	BuzzLong        = 1 * time.Second        // vehículo no registrado
	DefaultTestBuzz = 500 * time.Millisecond // test_buzzer sin duración
)

// Line es una salida booleana de hardware (un LED o el buzzer).
type Line interface {
	Set(on bool)
}

// NopLine descarta escrituras; se usa cuando el GPIO no pudo inicializarse
// para que la caseta siga escaneando sin feedback visual.
type NopLine struct{}

func (NopLine) Set(bool) {}

// Controller maneja los tres LEDs y el buzzer. Cada canal tiene a lo más una
// señal activa: una nueva señal reemplaza el apagado pendiente del canal.
type Controller struct {
	clk    clock.Clock
	logger *slog.Logger

	mu     sync.Mutex
	leds   map[Color]Line
	resets map[Color]*clock.Timer
	gen    map[Color]uint64

	buzzMu sync.Mutex
	buzzer Line
}

func NewController(green, red, yellow, buzzer Line, clk clock.Clock, logger *slog.Logger) *Controller {
	return &Controller{
		clk:    clk,
		logger: logger.With("component", "feedback"),
		leds: map[Color]Line{
			Green:  green,
			Red:    red,
			Yellow: yellow,
		},
		resets: make(map[Color]*clock.Timer),
		gen:    make(map[Color]uint64),
		buzzer: buzzer,
	}
}

// Signal enciende el LED ya y programa su apagado tras hold, sin bloquear al
// que llama. Si el canal ya tenía un apagado pendiente, se reemplaza.
func (c *Controller) Signal(color Color, hold time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line, ok := c.leds[color]
	if !ok {
		c.logger.Warn("unknown led color", "color", string(color))
		return
	}
	line.Set(true)
	if t := c.resets[color]; t != nil {
		t.Stop()
	}
	c.gen[color]++
	g := c.gen[color]
	c.resets[color] = c.clk.AfterFunc(hold, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		// una señal más nueva pudo ganarle a este timer entre que disparó
		// y tomó el lock; en ese caso el apagado ya no le toca a él
		if c.gen[color] != g {
			return
		}
		line.Set(false)
		delete(c.resets, color)
	})
}

// Off apaga el canal y cancela su apagado pendiente.
func (c *Controller) Off(color Color) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line, ok := c.leds[color]
	if !ok {
		return
	}
	line.Set(false)
	c.gen[color]++
	if t := c.resets[color]; t != nil {
		t.Stop()
		delete(c.resets, color)
	}
}

// AllOff apaga todos los canales; se llama al final del shutdown, con los
// handles de hardware todavía válidos.
func (c *Controller) AllOff() {
	for _, color := range []Color{Green, Red, Yellow} {
		c.Off(color)
	}
	c.buzzer.Set(false)
}

// Buzz mantiene el buzzer en alto durante d y bloquea al que llama. Dos
// pulsos nunca se entrelazan sobre el buzzer físico.
func (c *Controller) Buzz(d time.Duration) {
	if d <= 0 {
		return
	}
	c.buzzMu.Lock()
	defer c.buzzMu.Unlock()

	c.buzzer.Set(true)
	c.clk.Sleep(d)
	c.buzzer.Set(false)
}
