// Package commands implements the bamlink-log CLI commands.
package commands

import (
	"fmt"
	"io"

	"github.com/spoolbuddy/bamlink-go/pkg/plog"
)

// BuildFilter translates the CLI flag values into a capture filter.
func BuildFilter(serial, connID, direction, category string) (plog.Filter, error) {
	filter := plog.Filter{
		Serial:       serial,
		ConnectionID: connID,
	}

	if direction != "" {
		d, err := parseDirection(direction)
		if err != nil {
			return plog.Filter{}, err
		}
		filter.Direction = &d
	}
	if category != "" {
		c, err := parseCategory(category)
		if err != nil {
			return plog.Filter{}, err
		}
		filter.Category = &c
	}
	return filter, nil
}

func parseDirection(s string) (plog.Direction, error) {
	switch s {
	case "in":
		return plog.DirectionIn, nil
	case "out":
		return plog.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction %q (want in or out)", s)
	}
}

func parseCategory(s string) (plog.Category, error) {
	switch s {
	case "message":
		return plog.CategoryMessage, nil
	case "state":
		return plog.CategoryState, nil
	case "error":
		return plog.CategoryError, nil
	case "discovery":
		return plog.CategoryDiscovery, nil
	default:
		return 0, fmt.Errorf("invalid category %q (want message, state, error or discovery)", s)
	}
}

// View writes every matching event of the capture file to w in a
// human-readable format.
func View(w io.Writer, path string, filter plog.Filter) error {
	r, err := plog.NewFilteredReader(path, filter)
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		event, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		formatEvent(w, event)
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event plog.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	connID := shortenConnID(event.ConnectionID)

	var typeLabel string
	switch {
	case event.Message != nil:
		typeLabel = event.Message.Command
		if typeLabel == "" {
			typeLabel = "message"
		}
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	case event.Category == plog.CategoryDiscovery:
		typeLabel = "Announce"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s %s\n",
		ts, connID, event.Direction.String(), event.Category.String(), event.Serial, typeLabel)

	switch {
	case event.Message != nil:
		formatMessageDetails(w, event.Message)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}
	if event.RemoteAddr != "" {
		fmt.Fprintf(w, "  Remote: %s\n", event.RemoteAddr)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatMessageDetails(w io.Writer, msg *plog.MessageEvent) {
	if msg.Topic != "" {
		fmt.Fprintf(w, "  Topic: %s\n", msg.Topic)
	}
	fmt.Fprintf(w, "  Size: %d bytes\n", msg.Size)
	if len(msg.Payload) > 0 {
		fmt.Fprintf(w, "  Payload: %s", msg.Payload)
		if msg.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatStateChangeDetails(w io.Writer, sc *plog.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  Transition: %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  State: %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, e *plog.ErrorEventData) {
	fmt.Fprintf(w, "  Error: %s\n", e.Message)
	if e.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", e.Context)
	}
}
