package sensor

import "log/slog"

// FrameDecoder captura un frame de la cámara e intenta decodificar un payload.
// Regresa ok=false si el frame no trae código legible.
type FrameDecoder interface {
	DecodeFrame() (string, bool)
}

// QR lee identificadores decodificando códigos QR de frames de cámara.
type QR struct {
	d      FrameDecoder
	logger *slog.Logger
}

func NewQR(d FrameDecoder, logger *slog.Logger) *QR {
	return &QR{d: d, logger: logger.With("component", "qr")}
}

func (s *QR) Kind() Kind { return KindQR }

func (s *QR) Poll() (string, bool) {
	raw, ok := s.d.DecodeFrame()
	if !ok {
		return "", false
	}
	id, ok := Sanitize(raw)
	if !ok {
		return "", false
	}
	s.logger.Info("QR code scanned", "vehicle", id)
	return id, true
}
