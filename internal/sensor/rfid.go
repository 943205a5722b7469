package sensor

import "log/slog"

// LineReader entrega líneas completas del stream serial del lector RFID.
// Una implementación debe regresar ok=false si todavía no hay línea completa.
type LineReader interface {
	ReadLine() (string, bool)
}

// RFID lee identificadores línea por línea de un lector serial.
type RFID struct {
	r      LineReader
	logger *slog.Logger
}

func NewRFID(r LineReader, logger *slog.Logger) *RFID {
	return &RFID{r: r, logger: logger.With("component", "rfid")}
}

func (s *RFID) Kind() Kind { return KindRFID }

func (s *RFID) Poll() (string, bool) {
	raw, ok := s.r.ReadLine()
	if !ok {
		return "", false
	}
	id, ok := Sanitize(raw)
	if !ok {
		return "", false
	}
	s.logger.Info("RFID read", "vehicle", id)
	return id, true
}
