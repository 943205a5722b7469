package link

// State es el estado observable del canal de eventos. El cliente arranca en
// Disconnected y sólo reporta Connected después del handshake.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}
