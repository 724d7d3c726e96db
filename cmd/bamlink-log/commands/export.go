package commands

import (
	"encoding/json"
	"io"
	"time"

	"github.com/spoolbuddy/bamlink-go/pkg/plog"
)

// jsonEvent is the JSONL shape of a captured event. Payloads are exported
// as strings since the wire format is JSON text.
type jsonEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	ConnectionID string    `json:"connection_id,omitempty"`
	Serial       string    `json:"serial,omitempty"`
	Direction    string    `json:"direction"`
	Category     string    `json:"category"`
	RemoteAddr   string    `json:"remote_addr,omitempty"`

	Topic     string `json:"topic,omitempty"`
	Command   string `json:"command,omitempty"`
	Size      int    `json:"size,omitempty"`
	Payload   string `json:"payload,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`

	OldState string `json:"old_state,omitempty"`
	NewState string `json:"new_state,omitempty"`
	Reason   string `json:"reason,omitempty"`

	Error        string `json:"error,omitempty"`
	ErrorContext string `json:"error_context,omitempty"`
}

// Export writes every matching event of the capture file to w as one JSON
// object per line.
func Export(w io.Writer, path string, filter plog.Filter) error {
	r, err := plog.NewFilteredReader(path, filter)
	if err != nil {
		return err
	}
	defer r.Close()

	enc := json.NewEncoder(w)
	for {
		event, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := enc.Encode(toJSONEvent(event)); err != nil {
			return err
		}
	}
}

func toJSONEvent(event plog.Event) jsonEvent {
	je := jsonEvent{
		Timestamp:    event.Timestamp,
		ConnectionID: event.ConnectionID,
		Serial:       event.Serial,
		Direction:    event.Direction.String(),
		Category:     event.Category.String(),
		RemoteAddr:   event.RemoteAddr,
	}
	if msg := event.Message; msg != nil {
		je.Topic = msg.Topic
		je.Command = msg.Command
		je.Size = msg.Size
		je.Payload = string(msg.Payload)
		je.Truncated = msg.Truncated
	}
	if sc := event.StateChange; sc != nil {
		je.OldState = sc.OldState
		je.NewState = sc.NewState
		je.Reason = sc.Reason
	}
	if e := event.Error; e != nil {
		je.Error = e.Message
		je.ErrorContext = e.Context
	}
	return je
}
