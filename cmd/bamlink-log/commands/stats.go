package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spoolbuddy/bamlink-go/pkg/plog"
)

// captureStats holds aggregate statistics about a capture file.
type captureStats struct {
	TotalEvents       int
	EventsByCategory  map[plog.Category]int
	EventsByDirection map[plog.Direction]int
	Connections       map[string]*connectionStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// connectionStats holds statistics for a single connection attempt.
type connectionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Serial    string
	BytesIn   int
	BytesOut  int
}

// Stats analyzes the capture file and prints statistics.
func Stats(w io.Writer, path string) error {
	reader, err := plog.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	stats := &captureStats{
		EventsByCategory:  make(map[plog.Category]int),
		EventsByDirection: make(map[plog.Direction]int),
		Connections:       make(map[string]*connectionStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++

		// Track time range
		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		// Track connection stats
		conn, ok := stats.Connections[event.ConnectionID]
		if !ok {
			conn = &connectionStats{
				FirstSeen: event.Timestamp,
				LastSeen:  event.Timestamp,
			}
			stats.Connections[event.ConnectionID] = conn
		}
		conn.Events++
		if event.Timestamp.After(conn.LastSeen) {
			conn.LastSeen = event.Timestamp
		}
		if event.Serial != "" && conn.Serial == "" {
			conn.Serial = event.Serial
		}
		if msg := event.Message; msg != nil {
			switch event.Direction {
			case plog.DirectionIn:
				conn.BytesIn += msg.Size
			case plog.DirectionOut:
				conn.BytesOut += msg.Size
			}
		}

		if event.Error != nil {
			stats.Errors++
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *captureStats) {
	fmt.Fprintln(w, "=== Protocol Capture Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration: %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, c := range []plog.Category{plog.CategoryMessage, plog.CategoryState, plog.CategoryError, plog.CategoryDiscovery} {
		if n := stats.EventsByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %-10s %d\n", c.String(), n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, d := range []plog.Direction{plog.DirectionIn, plog.DirectionOut, plog.DirectionNone} {
		if n := stats.EventsByDirection[d]; n > 0 {
			fmt.Fprintf(w, "  %-4s %d\n", d.String(), n)
		}
	}
	fmt.Fprintln(w)

	ids := make([]string, 0, len(stats.Connections))
	for id := range stats.Connections {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return stats.Connections[ids[i]].FirstSeen.Before(stats.Connections[ids[j]].FirstSeen)
	})

	fmt.Fprintf(w, "Connections: %d\n", len(ids))
	for _, id := range ids {
		conn := stats.Connections[id]
		label := shortenConnID(id)
		if label == "" {
			label = "(none)"
		}
		fmt.Fprintf(w, "  %-8s serial=%s events=%d in=%dB out=%dB duration=%s\n",
			label, conn.Serial, conn.Events, conn.BytesIn, conn.BytesOut,
			conn.LastSeen.Sub(conn.FirstSeen).Round(time.Millisecond))
	}
}
