package plog

import "time"

// MaxPayloadCapture is the largest payload stored in a MessageEvent.
// Longer payloads are truncated and flagged; full state reports can exceed
// 15KB and capture files would grow quickly otherwise.
const MaxPayloadCapture = 4096

// Event is one captured protocol event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies one connection attempt of a session (UUID).
	// All events between a connect and the following disconnect share it.
	ConnectionID string `cbor:"2,keyasint,omitempty"`

	// Serial is the printer the event concerns.
	Serial string `cbor:"3,keyasint,omitempty"`

	// Direction indicates message flow.
	Direction Direction `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the printer's network address.
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Message     *MessageEvent     `cbor:"7,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"8,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"9,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates a message received from the printer.
	DirectionIn Direction = 0
	// DirectionOut indicates a message sent to the printer.
	DirectionOut Direction = 1
	// DirectionNone is used for events with no message flow, such as state
	// changes.
	DirectionNone Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	case DirectionNone:
		return "-"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol message (report or request).
	CategoryMessage Category = 0
	// CategoryState indicates a session state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
	// CategoryDiscovery indicates a received discovery announcement.
	CategoryDiscovery Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	case CategoryDiscovery:
		return "DISCOVERY"
	default:
		return "UNKNOWN"
	}
}

// MessageEvent captures one wire message.
type MessageEvent struct {
	// Topic the message was published on.
	Topic string `cbor:"1,keyasint,omitempty"`

	// Command is the wire command name, when one was recognized.
	Command string `cbor:"2,keyasint,omitempty"`

	// Size is the full payload size in bytes.
	Size int `cbor:"3,keyasint"`

	// Payload is the raw payload, possibly truncated.
	Payload []byte `cbor:"4,keyasint,omitempty"`

	// Truncated indicates Payload was cut at MaxPayloadCapture.
	Truncated bool `cbor:"5,keyasint,omitempty"`
}

// StateChangeEvent captures a session state transition.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures an error.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`
}

// CapturePayload returns payload bounded to MaxPayloadCapture plus whether
// it was truncated.
func CapturePayload(payload []byte) ([]byte, bool) {
	if len(payload) <= MaxPayloadCapture {
		captured := make([]byte, len(payload))
		copy(captured, payload)
		return captured, false
	}
	captured := make([]byte, MaxPayloadCapture)
	copy(captured, payload)
	return captured, true
}
