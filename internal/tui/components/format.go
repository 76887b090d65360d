package components

import (
	"fmt"
	"strconv"
	"time"

	"github.com/allbin/groundlink/internal/mavlink"
)

const unknown = "-"

func formatFloat(v *float64, prec int, unit string) string {
	if v == nil {
		return unknown
	}
	s := strconv.FormatFloat(*v, 'f', prec, 64)
	if unit != "" {
		s += " " + unit
	}
	return s
}

func formatInt(v *int, unit string) string {
	if v == nil {
		return unknown
	}
	if unit == "" {
		return strconv.Itoa(*v)
	}
	return strconv.Itoa(*v) + " " + unit
}

func formatString(v *string) string {
	if v == nil || *v == "" {
		return unknown
	}
	return *v
}

func formatArmed(v *bool) string {
	switch {
	case v == nil:
		return unknown
	case *v:
		return "ARMED"
	default:
		return "disarmed"
	}
}

var fixTypes = []string{"no gps", "no fix", "2D", "3D", "DGPS", "RTK float", "RTK fixed", "static", "PPP"}

func formatFix(v *uint8) string {
	if v == nil {
		return unknown
	}
	if int(*v) < len(fixTypes) {
		return fixTypes[*v]
	}
	return fmt.Sprintf("fix(%d)", *v)
}

var systemStates = []string{"uninit", "boot", "calibrating", "standby", "active", "critical", "emergency", "poweroff", "terminating"}

func formatSystemStatus(v *uint8) string {
	if v == nil {
		return unknown
	}
	if int(*v) < len(systemStates) {
		return systemStates[*v]
	}
	return fmt.Sprintf("state(%d)", *v)
}

func formatAutopilot(v *uint8) string {
	if v == nil {
		return unknown
	}
	switch *v {
	case mavlink.AutopilotArduPilotMega:
		return "ArduPilot"
	case mavlink.AutopilotPX4:
		return "PX4"
	case mavlink.AutopilotGeneric:
		return "generic"
	case mavlink.AutopilotInvalid:
		return "none"
	default:
		return fmt.Sprintf("autopilot(%d)", *v)
	}
}

func formatIDs(sys, comp *uint8) string {
	if sys == nil || comp == nil {
		return unknown
	}
	return fmt.Sprintf("%d/%d", *sys, *comp)
}

// formatAge renders how long ago the last frame arrived
func formatAge(last, now time.Time) string {
	if last.IsZero() {
		return "never"
	}
	age := now.Sub(last)
	if age < 0 {
		age = 0
	}
	return age.Truncate(100*time.Millisecond).String() + " ago"
}
