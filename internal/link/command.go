package link

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CommandKind es el conjunto cerrado de comandos que la caseta acepta por el
// canal de eventos. Cualquier otro valor se descarta como malformado.
type CommandKind string

const (
	CmdTestLed       CommandKind = "test_led"
	CmdTestBuzzer    CommandKind = "test_buzzer"
	CmdStatusRequest CommandKind = "status_request"
)

// ErrMalformedCommand marca mensajes hardware_command que no se pudieron
// interpretar. El canal los registra y sigue; nunca tiran la conexión.
var ErrMalformedCommand = errors.New("malformed hardware command")

// Command es una instrucción entrante ya validada.
type Command struct {
	Kind     CommandKind
	Color    string        // sólo test_led
	Duration time.Duration // sólo test_buzzer; 0 significa usar el default
}

// CommandHandler ejecuta los comandos de prueba sobre la caseta. El comando
// status_request lo resuelve el propio canal reenviando el estado.
type CommandHandler interface {
	TestLed(color string)
	TestBuzzer(d time.Duration)
}

// inboundMessage es la forma cruda de cualquier mensaje del backend. Sólo
// type == "hardware_command" nos interesa; el resto se ignora.
type inboundMessage struct {
	Type     string   `json:"type"`
	Command  string   `json:"command"`
	Color    string   `json:"color"`
	Duration *float64 `json:"duration"` // segundos, como lo manda el backend
}

// toCommand valida y normaliza un hardware_command.
func (m inboundMessage) toCommand() (Command, error) {
	switch CommandKind(m.Command) {
	case CmdTestLed:
		color := m.Color
		if color == "" {
			color = "green"
		}
		return Command{Kind: CmdTestLed, Color: color}, nil
	case CmdTestBuzzer:
		var d time.Duration
		if m.Duration != nil {
			if *m.Duration < 0 {
				return Command{}, fmt.Errorf("%w: negative duration %v", ErrMalformedCommand, *m.Duration)
			}
			d = time.Duration(*m.Duration * float64(time.Second))
		}
		return Command{Kind: CmdTestBuzzer, Duration: d}, nil
	case CmdStatusRequest:
		return Command{Kind: CmdStatusRequest}, nil
	default:
		return Command{}, fmt.Errorf("%w: unknown command %q", ErrMalformedCommand, m.Command)
	}
}

// parseInbound clasifica un mensaje crudo del canal. Regresa (cmd, true, nil)
// para comandos válidos, (_, false, nil) para mensajes que no son comandos y
// un error para todo lo que no se pudo interpretar.
func parseInbound(raw []byte) (Command, bool, error) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Command{}, false, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	if msg.Type != "hardware_command" {
		return Command{}, false, nil
	}
	cmd, err := msg.toCommand()
	if err != nil {
		return Command{}, false, err
	}
	return cmd, true, nil
}
