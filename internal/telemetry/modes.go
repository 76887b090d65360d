package telemetry

import (
	"fmt"

	"github.com/allbin/groundlink/internal/mavlink"
)

var copterModes = map[uint32]string{
	0: "STABILIZE", 1: "ACRO", 2: "ALT_HOLD", 3: "AUTO", 4: "GUIDED", 5: "LOITER",
	6: "RTL", 7: "CIRCLE", 9: "LAND", 11: "DRIFT", 13: "SPORT", 14: "FLIP",
	15: "AUTOTUNE", 16: "POSHOLD", 17: "BRAKE", 18: "THROW", 19: "AVOID_ADSB",
	20: "GUIDED_NOGPS", 21: "SMART_RTL", 22: "FLOWHOLD", 23: "FOLLOW",
	24: "ZIGZAG", 25: "SYSTEMID", 26: "AUTOROTATE", 27: "AUTO_RTL",
}

var planeModes = map[uint32]string{
	0: "MANUAL", 1: "CIRCLE", 2: "STABILIZE", 3: "TRAINING", 4: "ACRO", 5: "FBWA",
	6: "FBWB", 7: "CRUISE", 8: "AUTOTUNE", 10: "AUTO", 11: "RTL", 12: "LOITER",
	13: "TAKEOFF", 14: "AVOID_ADSB", 15: "GUIDED", 17: "QSTABILIZE", 18: "QHOVER",
	19: "QLOITER", 20: "QLAND", 21: "QRTL", 22: "QAUTOTUNE", 23: "QACRO", 24: "THERMAL",
}

var roverModes = map[uint32]string{
	0: "MANUAL", 1: "ACRO", 3: "STEERING", 4: "HOLD", 5: "LOITER", 6: "FOLLOW",
	7: "SIMPLE", 10: "AUTO", 11: "RTL", 12: "SMART_RTL", 15: "GUIDED",
}

var subModes = map[uint32]string{
	0: "STABILIZE", 1: "ACRO", 2: "ALT_HOLD", 3: "AUTO", 4: "GUIDED", 7: "CIRCLE",
	9: "SURFACE", 16: "POSHOLD", 19: "MANUAL",
}

var px4MainModes = map[uint32]string{
	1: "MANUAL", 2: "ALTCTL", 3: "POSCTL", 4: "AUTO", 5: "ACRO", 6: "OFFBOARD",
	7: "STABILIZED", 8: "RATTITUDE",
}

var px4AutoSubModes = map[uint32]string{
	1: "READY", 2: "TAKEOFF", 3: "LOITER", 4: "MISSION", 5: "RTL", 6: "LAND",
	8: "FOLLOW_TARGET", 9: "PRECLAND",
}

// modeName renders the flight mode of a heartbeat. Unknown combinations come
// back as CUSTOM(n).
func modeName(hb *mavlink.Heartbeat) string {
	switch hb.Autopilot {
	case mavlink.AutopilotArduPilotMega:
		if name, ok := arduModes(hb.Type)[hb.CustomMode]; ok {
			return name
		}
	case mavlink.AutopilotPX4:
		main := (hb.CustomMode >> 16) & 0xFF
		sub := (hb.CustomMode >> 24) & 0xFF
		if name, ok := px4MainModes[main]; ok {
			if main == 4 {
				if s, ok := px4AutoSubModes[sub]; ok {
					return name + "_" + s
				}
			}
			return name
		}
	}
	return fmt.Sprintf("CUSTOM(%d)", hb.CustomMode)
}

func arduModes(vehicle uint8) map[uint32]string {
	switch vehicle {
	case mavlink.TypeFixedWing:
		return planeModes
	case mavlink.TypeGroundRover, mavlink.TypeSurfaceBoat:
		return roverModes
	case mavlink.TypeSubmarine:
		return subModes
	default:
		return copterModes
	}
}
