package printer

// EventType discriminates the Event union.
type EventType uint8

const (
	// EventConnected indicates the session reached the active state.
	EventConnected EventType = iota

	// EventDisconnected indicates the session lost or closed its connection.
	EventDisconnected

	// EventStateUpdated carries a fresh state snapshot.
	EventStateUpdated

	// EventError reports a recoverable protocol-level problem. It does not
	// imply a connection state change.
	EventError
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "CONNECTED"
	case EventDisconnected:
		return "DISCONNECTED"
	case EventStateUpdated:
		return "STATE_UPDATED"
	case EventError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is a lifecycle or state notification produced by a session.
// Events are broadcast to every subscriber; consumption is never destructive.
type Event struct {
	// Type selects the variant.
	Type EventType

	// Serial identifies the printer the event concerns.
	Serial string

	// State is set for EventStateUpdated.
	State *State

	// Message is set for EventError.
	Message string
}
