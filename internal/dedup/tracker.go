package dedup

import (
	"sync"
	"time"
)

// staleFactor define cuántas ventanas de cooldown sin ver un identificador
// hacen que su registro sea elegible para desalojo.
const staleFactor = 3

// Tracker suprime lecturas repetidas del mismo identificador dentro de una
// ventana de cooldown. Es seguro para uso concurrente.
type Tracker struct {
	mu       sync.Mutex
	cooldown time.Duration
	lastSeen map[string]time.Time
}

func NewTracker(cooldown time.Duration) *Tracker {
	return &Tracker{
		cooldown: cooldown,
		lastSeen: make(map[string]time.Time),
	}
}

// ShouldProcess reporta si el identificador debe procesarse en `now`.
// La primera vez siempre es true; después sólo cuando ya pasó el cooldown
// desde el último scan aceptado. Una lectura suprimida no extiende la ventana.
func (t *Tracker) ShouldProcess(id string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.lastSeen[id]; ok && now.Sub(last) < t.cooldown {
		return false
	}
	t.lastSeen[id] = now
	return true
}

// EvictStale borra identificadores sin scans aceptados por varias ventanas de
// cooldown, para que el mapa no crezca sin límite en una caseta que corre
// durante meses. Devuelve cuántos registros se desalojaron.
func (t *Tracker) EvictStale(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for id, last := range t.lastSeen {
		if now.Sub(last) >= t.cooldown*staleFactor {
			delete(t.lastSeen, id)
			evicted++
		}
	}
	return evicted
}

// Len reporta cuántos identificadores hay registrados.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastSeen)
}
