package scan

import (
	"log/slog"
	"time"

	"tollbooth-agent/internal/feedback"
)

// Commands ejecuta los comandos de prueba que el backend manda por el canal
// de eventos. Comparte el Controller con el coordinador, así que un test de
// LED se comporta igual que una señal real: un timer por canal, el más nuevo
// gana.
type Commands struct {
	fb     *feedback.Controller
	logger *slog.Logger
}

func NewCommands(fb *feedback.Controller, logger *slog.Logger) *Commands {
	return &Commands{fb: fb, logger: logger.With("component", "commands")}
}

// TestLed enciende el color pedido por el hold de prueba.
func (h *Commands) TestLed(color string) {
	h.logger.Info("led test", "color", color)
	h.fb.Signal(feedback.Color(color), feedback.HoldTest)
}

// TestBuzzer pulsa el buzzer. Sin duración explícita usa el default.
func (h *Commands) TestBuzzer(d time.Duration) {
	if d <= 0 {
		d = feedback.DefaultTestBuzz
	}
	h.logger.Info("buzzer test", "duration", d.String())
	h.fb.Buzz(d)
}
