package components

import (
	"strings"
	"testing"
	"time"

	"github.com/allbin/groundlink/internal/mavlink"
	"github.com/allbin/groundlink/internal/telemetry"
)

func ptr[T any](v T) *T { return &v }

func rowValue(t *testing.T, rows []TelemetryRow, field string) string {
	t.Helper()
	for _, r := range rows {
		if r.Field == field {
			return r.Value
		}
	}
	t.Fatalf("no row %q", field)
	return ""
}

func TestTelemetryRowsUnknownFields(t *testing.T) {
	rows := TelemetryRows(telemetry.Snapshot{}, time.Now())
	if len(rows) == 0 {
		t.Fatal("no rows")
	}
	for _, r := range rows {
		if r.Field == "updated" {
			if r.Value != "never" {
				t.Errorf("updated = %q, want never", r.Value)
			}
			continue
		}
		if r.Value != unknown {
			t.Errorf("%s = %q, want %q", r.Field, r.Value, unknown)
		}
	}
}

func TestTelemetryRowsFormatting(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := telemetry.Snapshot{
		FixType:          ptr(uint8(3)),
		Satellites:       ptr(11),
		Latitude:         ptr(57.7089),
		AltitudeMSL:      ptr(12.34),
		Heading:          ptr(271.6),
		Throttle:         ptr(40),
		Armed:            ptr(true),
		Mode:             ptr("LOITER"),
		BatteryVoltage:   ptr(12.6),
		BatteryRemaining: ptr(87),
		Autopilot:        ptr(mavlink.AutopilotPX4),
		SystemStatus:     ptr(uint8(4)),
		SystemID:         ptr(uint8(1)),
		ComponentID:      ptr(uint8(1)),
		LastUpdate:       now.Add(-1500 * time.Millisecond),
	}
	rows := TelemetryRows(s, now)

	tests := map[string]string{
		"fix":        "3D",
		"satellites": "11",
		"latitude":   "57.7089000 °",
		"alt msl":    "12.3 m",
		"heading":    "272 °",
		"throttle":   "40 %",
		"armed":      "ARMED",
		"mode":       "LOITER",
		"voltage":    "12.60 V",
		"remaining":  "87 %",
		"autopilot":  "PX4",
		"state":      "active",
		"sys/comp":   "1/1",
		"updated":    "1.5s ago",
	}
	for field, want := range tests {
		if got := rowValue(t, rows, field); got != want {
			t.Errorf("%s = %q, want %q", field, got, want)
		}
	}
}

func TestFormatEnumsOutOfRange(t *testing.T) {
	if got := formatFix(ptr(uint8(42))); got != "fix(42)" {
		t.Errorf("formatFix(42) = %q", got)
	}
	if got := formatSystemStatus(ptr(uint8(99))); got != "state(99)" {
		t.Errorf("formatSystemStatus(99) = %q", got)
	}
	if got := formatArmed(ptr(false)); got != "disarmed" {
		t.Errorf("formatArmed(false) = %q", got)
	}
}

func TestTelemetryTableView(t *testing.T) {
	tbl := NewTelemetryTable()
	tbl.SetWidth(46)
	tbl.SetSnapshot(telemetry.Snapshot{Mode: ptr("GUIDED"), LastUpdate: time.Now()}, time.Now())

	view := tbl.View()
	for _, want := range []string{"GUIDED", "satellites", "battery"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
	if tbl.Snapshot().Mode == nil {
		t.Error("Snapshot() lost the mode")
	}
}
