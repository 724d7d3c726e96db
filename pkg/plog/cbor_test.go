package plog

import (
	"testing"
	"time"
)

func TestEventCBORRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 123456789, time.UTC)
	original := Event{
		Timestamp:    ts,
		ConnectionID: "abc12345-def6-7890-abcd-ef1234567890",
		Serial:       "01S00C123400001",
		Direction:    DirectionOut,
		Category:     CategoryMessage,
		RemoteAddr:   "192.168.1.100:8883",
		Message: &MessageEvent{
			Topic:   "device/01S00C123400001/request",
			Command: "pushall",
			Size:    58,
			Payload: []byte(`{"pushing":{"command":"pushall","sequence_id":"1"}}`),
		},
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !decoded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("Timestamp: got %v, want %v", decoded.Timestamp, original.Timestamp)
	}
	if decoded.ConnectionID != original.ConnectionID {
		t.Errorf("ConnectionID: got %q, want %q", decoded.ConnectionID, original.ConnectionID)
	}
	if decoded.Serial != original.Serial {
		t.Errorf("Serial: got %q, want %q", decoded.Serial, original.Serial)
	}
	if decoded.Direction != original.Direction {
		t.Errorf("Direction: got %v, want %v", decoded.Direction, original.Direction)
	}
	if decoded.Category != original.Category {
		t.Errorf("Category: got %v, want %v", decoded.Category, original.Category)
	}
	if decoded.RemoteAddr != original.RemoteAddr {
		t.Errorf("RemoteAddr: got %q, want %q", decoded.RemoteAddr, original.RemoteAddr)
	}
	if decoded.Message == nil {
		t.Fatal("Message is nil")
	}
	if decoded.Message.Topic != original.Message.Topic {
		t.Errorf("Message.Topic: got %q, want %q", decoded.Message.Topic, original.Message.Topic)
	}
	if decoded.Message.Command != original.Message.Command {
		t.Errorf("Message.Command: got %q, want %q", decoded.Message.Command, original.Message.Command)
	}
	if string(decoded.Message.Payload) != string(original.Message.Payload) {
		t.Errorf("Message.Payload: got %q, want %q", decoded.Message.Payload, original.Message.Payload)
	}
}

func TestStateChangeRoundTrip(t *testing.T) {
	original := Event{
		Timestamp: time.Now().UTC(),
		Serial:    "01S00C123400001",
		Direction: DirectionNone,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			OldState: "CONNECTING",
			NewState: "ACTIVE",
		},
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.StateChange == nil {
		t.Fatal("StateChange is nil")
	}
	if decoded.StateChange.OldState != "CONNECTING" || decoded.StateChange.NewState != "ACTIVE" {
		t.Errorf("StateChange: got %+v", decoded.StateChange)
	}
}

func TestCapturePayloadTruncates(t *testing.T) {
	small := []byte("hello")
	captured, truncated := CapturePayload(small)
	if truncated {
		t.Error("small payload should not be truncated")
	}
	if string(captured) != "hello" {
		t.Errorf("captured: got %q", captured)
	}

	big := make([]byte, MaxPayloadCapture+100)
	captured, truncated = CapturePayload(big)
	if !truncated {
		t.Error("large payload should be truncated")
	}
	if len(captured) != MaxPayloadCapture {
		t.Errorf("captured length: got %d, want %d", len(captured), MaxPayloadCapture)
	}
}
