package hw

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"go.bug.st/serial"
)

// serialReadTimeout acota cuánto puede bloquear un sondeo esperando bytes
// del lector. Corto a propósito: el loop de escaneo sondea seguido.
const serialReadTimeout = 20 * time.Millisecond

// maxPendingBytes protege el buffer contra un lector que mande basura sin
// saltos de línea.
const maxPendingBytes = 4096

// RFIDReader acumula bytes del puerto serial y entrega líneas completas.
// Los lectores RDM6300 y similares terminan cada tag con \r\n.
type RFIDReader struct {
	port    serial.Port
	buf     []byte
	scratch [256]byte
	logger  *slog.Logger
}

// OpenRFID abre el lector en 8N1 al baudrate configurado.
func OpenRFID(portName string, baud int, logger *slog.Logger) (*RFIDReader, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open rfid serial %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(serialReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set rfid read timeout: %w", err)
	}
	return &RFIDReader{port: port, logger: logger.With("component", "hw.rfid")}, nil
}

// ReadLine drena lo que el puerto tenga disponible y regresa la siguiente
// línea completa, o false si todavía no hay una.
func (r *RFIDReader) ReadLine() (string, bool) {
	n, err := r.port.Read(r.scratch[:])
	if err != nil {
		r.logger.Warn("rfid read error", "error", err)
		return "", false
	}
	if n > 0 {
		r.buf = append(r.buf, r.scratch[:n]...)
	}
	return r.takeLine()
}

// takeLine saca la primera línea completa del buffer acumulado.
func (r *RFIDReader) takeLine() (string, bool) {
	if i := bytes.IndexByte(r.buf, '\n'); i >= 0 {
		line := string(r.buf[:i+1])
		r.buf = append(r.buf[:0], r.buf[i+1:]...)
		return line, true
	}
	if len(r.buf) > maxPendingBytes {
		r.logger.Warn("rfid buffer overflow, discarding", "bytes", len(r.buf))
		r.buf = r.buf[:0]
	}
	return "", false
}

func (r *RFIDReader) Close() error {
	return r.port.Close()
}
