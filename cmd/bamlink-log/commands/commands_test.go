package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spoolbuddy/bamlink-go/pkg/plog"
)

// writeCapture creates a small capture file with a known mix of events.
func writeCapture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.blog")

	logger, err := plog.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	logger.Log(plog.Event{
		Timestamp:    base,
		ConnectionID: "conn-1",
		Serial:       "AAA",
		Direction:    plog.DirectionOut,
		Category:     plog.CategoryMessage,
		Message: &plog.MessageEvent{
			Topic:   "device/AAA/request",
			Command: "pushall",
			Size:    51,
			Payload: []byte(`{"pushing":{"command":"pushall","sequence_id":"1"}}`),
		},
	})
	logger.Log(plog.Event{
		Timestamp:    base.Add(time.Second),
		ConnectionID: "conn-1",
		Serial:       "AAA",
		Direction:    plog.DirectionIn,
		Category:     plog.CategoryMessage,
		Message:      &plog.MessageEvent{Topic: "device/AAA/report", Size: 2048},
	})
	logger.Log(plog.Event{
		Timestamp:   base.Add(2 * time.Second),
		Serial:      "BBB",
		Direction:   plog.DirectionNone,
		Category:    plog.CategoryState,
		StateChange: &plog.StateChangeEvent{OldState: "CONNECTING", NewState: "ACTIVE"},
	})
	return path
}

func TestBuildFilter(t *testing.T) {
	filter, err := BuildFilter("AAA", "conn-1", "in", "message")
	if err != nil {
		t.Fatalf("BuildFilter failed: %v", err)
	}
	if filter.Serial != "AAA" || filter.ConnectionID != "conn-1" {
		t.Errorf("filter: got %+v", filter)
	}
	if filter.Direction == nil || *filter.Direction != plog.DirectionIn {
		t.Errorf("direction: got %v", filter.Direction)
	}
	if filter.Category == nil || *filter.Category != plog.CategoryMessage {
		t.Errorf("category: got %v", filter.Category)
	}

	if _, err := BuildFilter("", "", "sideways", ""); err == nil {
		t.Error("expected error for invalid direction")
	}
	if _, err := BuildFilter("", "", "", "telemetry"); err == nil {
		t.Error("expected error for invalid category")
	}
}

func TestViewFilters(t *testing.T) {
	path := writeCapture(t)

	var buf bytes.Buffer
	if err := View(&buf, path, plog.Filter{Serial: "AAA"}); err != nil {
		t.Fatalf("View failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "pushall") {
		t.Errorf("output missing command name:\n%s", out)
	}
	if !strings.Contains(out, "device/AAA/report") {
		t.Errorf("output missing report topic:\n%s", out)
	}
	if strings.Contains(out, "BBB") {
		t.Errorf("filtered serial leaked into output:\n%s", out)
	}
}

func TestExportProducesJSONL(t *testing.T) {
	path := writeCapture(t)

	var buf bytes.Buffer
	if err := Export(&buf, path, plog.Filter{}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	lines := 0
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var decoded map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines+1, err)
		}
		lines++
	}
	if lines != 3 {
		t.Errorf("exported lines: got %d, want 3", lines)
	}
}

func TestStatsCountsEvents(t *testing.T) {
	path := writeCapture(t)

	var buf bytes.Buffer
	if err := Stats(&buf, path); err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Total Events: 3") {
		t.Errorf("stats output missing total:\n%s", out)
	}
	if !strings.Contains(out, "MESSAGE") || !strings.Contains(out, "STATE") {
		t.Errorf("stats output missing category breakdown:\n%s", out)
	}
}
