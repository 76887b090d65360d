package components

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"

	"github.com/allbin/groundlink/internal/telemetry"
	"github.com/allbin/groundlink/internal/tui/colors"
)

const (
	columnKeyGroup = "group"
	columnKeyField = "field"
	columnKeyValue = "value"
)

// TelemetryRow is one line of the telemetry panel
type TelemetryRow struct {
	Group string
	Field string
	Value string
}

// TelemetryRows flattens a snapshot into display rows. The row set is fixed
// so the table does not jump around while fields fill in.
func TelemetryRows(s telemetry.Snapshot, now time.Time) []TelemetryRow {
	return []TelemetryRow{
		{"vehicle", "mode", formatString(s.Mode)},
		{"vehicle", "armed", formatArmed(s.Armed)},
		{"vehicle", "state", formatSystemStatus(s.SystemStatus)},
		{"vehicle", "autopilot", formatAutopilot(s.Autopilot)},
		{"vehicle", "sys/comp", formatIDs(s.SystemID, s.ComponentID)},
		{"gps", "fix", formatFix(s.FixType)},
		{"gps", "satellites", formatInt(s.Satellites, "")},
		{"gps", "latitude", formatFloat(s.Latitude, 7, "°")},
		{"gps", "longitude", formatFloat(s.Longitude, 7, "°")},
		{"gps", "alt msl", formatFloat(s.AltitudeMSL, 1, "m")},
		{"gps", "alt rel", formatFloat(s.RelativeAltitude, 1, "m")},
		{"motion", "heading", formatFloat(s.Heading, 0, "°")},
		{"motion", "ground speed", formatFloat(s.GroundSpeed, 1, "m/s")},
		{"motion", "air speed", formatFloat(s.AirSpeed, 1, "m/s")},
		{"motion", "climb", formatFloat(s.ClimbRate, 1, "m/s")},
		{"motion", "throttle", formatInt(s.Throttle, "%")},
		{"attitude", "roll", formatFloat(s.Roll, 1, "°")},
		{"attitude", "pitch", formatFloat(s.Pitch, 1, "°")},
		{"attitude", "yaw", formatFloat(s.Yaw, 1, "°")},
		{"battery", "voltage", formatFloat(s.BatteryVoltage, 2, "V")},
		{"battery", "current", formatFloat(s.BatteryCurrent, 1, "A")},
		{"battery", "remaining", formatInt(s.BatteryRemaining, "%")},
		{"link", "status", formatString(s.StatusText)},
		{"link", "updated", formatAge(s.LastUpdate, now)},
	}
}

// TelemetryTable renders the latest snapshot with bubble-table
type TelemetryTable struct {
	model    table.Model
	snapshot telemetry.Snapshot
	width    int
}

func NewTelemetryTable() *TelemetryTable {
	columns := []table.Column{
		table.NewColumn(columnKeyGroup, "", 9).
			WithStyle(lipgloss.NewStyle().Foreground(colors.Overlay0)),
		table.NewColumn(columnKeyField, "Field", 13).
			WithStyle(lipgloss.NewStyle().Foreground(colors.Subtext0)),
		table.NewFlexColumn(columnKeyValue, "Value", 1).
			WithStyle(lipgloss.NewStyle().Foreground(colors.Text).Align(lipgloss.Left)),
	}

	model := table.New(columns).
		BorderRounded().
		WithNoPagination().
		WithBaseStyle(lipgloss.NewStyle().BorderForeground(colors.Surface2)).
		HeaderStyle(lipgloss.NewStyle().Foreground(colors.Mauve).Bold(true)).
		Focused(false)

	t := &TelemetryTable{model: model, width: 40}
	t.SetSnapshot(telemetry.Snapshot{}, time.Now())
	return t
}

func (t *TelemetryTable) SetWidth(width int) {
	if width < 30 {
		width = 30
	}
	t.width = width
	t.model = t.model.WithTargetWidth(width)
}

// SetSnapshot replaces the rows; now drives the "updated" age
func (t *TelemetryTable) SetSnapshot(s telemetry.Snapshot, now time.Time) {
	t.snapshot = s

	rows := TelemetryRows(s, now)
	tableRows := make([]table.Row, 0, len(rows))
	last := ""
	for _, r := range rows {
		// Print the group only on its first row
		group := r.Group
		if group == last {
			group = ""
		}
		last = r.Group

		var value any = r.Value
		// Color the armed state so it stands out
		if r.Field == "armed" && s.Armed != nil {
			c := colors.Safe
			if *s.Armed {
				c = colors.Armed
			}
			value = table.NewStyledCell(r.Value, lipgloss.NewStyle().Foreground(c).Bold(true))
		}

		tableRows = append(tableRows, table.NewRow(table.RowData{
			columnKeyGroup: group,
			columnKeyField: r.Field,
			columnKeyValue: value,
		}))
	}
	t.model = t.model.WithRows(tableRows)
}

// Refresh re-renders the age column without a new snapshot
func (t *TelemetryTable) Refresh(now time.Time) {
	t.SetSnapshot(t.snapshot, now)
}

func (t *TelemetryTable) Snapshot() telemetry.Snapshot {
	return t.snapshot
}

func (t *TelemetryTable) View() string {
	return t.model.View()
}
