package session

// State represents the session lifecycle state.
type State uint8

const (
	// StateConnecting indicates the transport connect and MQTT
	// authentication exchange are in progress.
	StateConnecting State = iota

	// StateSubscribing indicates the report-channel subscription and
	// initial state request are in progress.
	StateSubscribing

	// StateActive indicates the steady state: reports are decoded and
	// commands are accepted.
	StateActive

	// StateReconnecting indicates the session is waiting out the fixed
	// delay before the next connect attempt.
	StateReconnecting

	// StateStopped is terminal; the session was stopped and will not
	// reconnect.
	StateStopped
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateSubscribing:
		return "SUBSCRIBING"
	case StateActive:
		return "ACTIVE"
	case StateReconnecting:
		return "RECONNECTING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}
