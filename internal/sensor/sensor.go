package sensor

import "strings"

// Kind indica qué lector produjo un identificador; los valores van tal cual
// en el wire del backend.
type Kind string

const (
	KindRFID Kind = "rfid"
	KindQR   Kind = "qr"
)

// Source es un lector de identificadores de vehículo. Poll debe regresar de
// inmediato: o el siguiente identificador completo, o ok=false si no hay nada.
type Source interface {
	Kind() Kind
	Poll() (string, bool)
}

// Sanitize quita el framing de transporte de una lectura cruda (\r, \n y
// espacios alrededor). Un identificador que queda vacío no es identificador.
func Sanitize(raw string) (string, bool) {
	id := strings.ReplaceAll(raw, "\r", "")
	id = strings.ReplaceAll(id, "\n", "")
	id = strings.TrimSpace(id)
	return id, id != ""
}
