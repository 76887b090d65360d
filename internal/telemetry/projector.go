package telemetry

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/allbin/groundlink/internal/mavlink"
	"github.com/allbin/groundlink/internal/observe"
)

const headingUnknown = 65535

// Project merges one frame into s and returns the new snapshot. Only the
// fields the message carries change; origin IDs and the update time are
// refreshed for every frame.
func Project(s Snapshot, f *mavlink.Frame, at time.Time) Snapshot {
	s.SystemID = ptr(f.SystemID)
	s.ComponentID = ptr(f.ComponentID)
	s.LastUpdate = at

	switch m := f.Message.(type) {
	case *mavlink.Heartbeat:
		s.Armed = ptr(m.BaseMode&mavlink.ModeFlagSafetyArmed != 0)
		s.Mode = ptr(modeName(m))
		s.Autopilot = ptr(m.Autopilot)
		s.SystemStatus = ptr(m.SystemStatus)
		s.MavlinkVersion = ptr(int(m.MavlinkVersion))

	case *mavlink.GPSRawInt:
		s.FixType = ptr(m.FixType)
		s.Satellites = ptr(int(m.SatellitesVisible))
		s.Latitude = ptr(float64(m.Lat) / 1e7)
		s.Longitude = ptr(float64(m.Lon) / 1e7)
		s.Heading = centiDegrees(m.Cog)

	case *mavlink.GlobalPositionInt:
		s.Latitude = ptr(float64(m.Lat) / 1e7)
		s.Longitude = ptr(float64(m.Lon) / 1e7)
		s.AltitudeMSL = ptr(float64(m.Alt) / 1000)
		s.RelativeAltitude = ptr(float64(m.RelativeAlt) / 1000)
		s.Heading = centiDegrees(m.Hdg)

	case *mavlink.VFRHUD:
		s.AirSpeed = ptr(float64(m.Airspeed))
		s.GroundSpeed = ptr(float64(m.Groundspeed))
		s.Throttle = ptr(int(m.Throttle))
		s.ClimbRate = ptr(float64(m.Climb))

	case *mavlink.Attitude:
		s.Roll = ptr(degrees(m.Roll))
		s.Pitch = ptr(degrees(m.Pitch))
		s.Yaw = ptr(degrees(m.Yaw))

	case *mavlink.SysStatus:
		s.BatteryVoltage = ptr(float64(m.VoltageBattery) / 1000)
		s.BatteryCurrent = current(m.CurrentBattery)
		s.BatteryRemaining = remaining(m.BatteryRemaining)

	case *mavlink.BatteryStatus:
		// only the primary battery feeds the snapshot
		if m.ID == 0 {
			s.BatteryCurrent = current(m.CurrentBattery)
			s.BatteryRemaining = remaining(m.BatteryRemaining)
		}

	case *mavlink.StatusText:
		s.StatusText = ptr(fmt.Sprintf("[%d] %s", m.Severity, m.Text))
	}

	return s
}

func centiDegrees(v uint16) *float64 {
	if v == headingUnknown {
		return nil
	}
	return ptr(float64(v) / 100)
}

func degrees(rad float32) float64 {
	return float64(rad) * 180 / math.Pi
}

func current(cA int16) *float64 {
	if cA < 0 {
		return nil
	}
	return ptr(float64(cA) / 100)
}

func remaining(pct int8) *int {
	if pct < 0 {
		return nil
	}
	return ptr(int(pct))
}

// Projector is the single writer of the published snapshot
type Projector struct {
	value *observe.Value[Snapshot]
	log   *zap.Logger
	now   func() time.Time
}

func NewProjector(log *zap.Logger) *Projector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Projector{
		value: observe.NewValue(Snapshot{}),
		log:   log,
		now:   time.Now,
	}
}

// Apply merges f and publishes the result as a whole new snapshot
func (p *Projector) Apply(f *mavlink.Frame) {
	if st, ok := f.Message.(*mavlink.StatusText); ok {
		p.log.Info("vehicle status",
			zap.Uint8("severity", st.Severity),
			zap.String("text", st.Text),
			zap.Uint8("system_id", f.SystemID))
	}
	at := p.now()
	p.value.Update(func(s Snapshot) Snapshot { return Project(s, f, at) })
}

// Reset publishes an empty snapshot
func (p *Projector) Reset() {
	p.value.Store(Snapshot{})
}

// Snapshot returns the latest published snapshot
func (p *Projector) Snapshot() Snapshot {
	return p.value.Load()
}

// Subscribe follows snapshot replacements, latest wins
func (p *Projector) Subscribe() (<-chan Snapshot, func()) {
	return p.value.Subscribe()
}
