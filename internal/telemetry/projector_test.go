package telemetry

import (
	"math"
	"testing"
	"time"

	"github.com/allbin/groundlink/internal/mavlink"
)

func frame(m mavlink.Message) *mavlink.Frame {
	return &mavlink.Frame{Version: 2, SystemID: 1, ComponentID: 1, Message: m}
}

func TestPartialMergeKeepsOtherFields(t *testing.T) {
	at := time.Unix(100, 0)
	s := Project(Snapshot{}, frame(&mavlink.GPSRawInt{Lat: 410000000, Lon: 290000000, Cog: 9000, FixType: 3, SatellitesVisible: 9}), at)
	s = Project(s, frame(&mavlink.Attitude{Roll: float32(math.Pi / 2)}), at.Add(time.Second))

	if s.Latitude == nil || *s.Latitude != 41 {
		t.Errorf("Latitude = %v, expected 41", s.Latitude)
	}
	if s.Longitude == nil || *s.Longitude != 29 {
		t.Errorf("Longitude = %v, expected 29", s.Longitude)
	}
	if s.Heading == nil || *s.Heading != 90 {
		t.Errorf("Heading = %v, expected 90", s.Heading)
	}
	if s.Roll == nil || math.Abs(*s.Roll-90) > 1e-4 {
		t.Errorf("Roll = %v, expected 90", s.Roll)
	}
	if s.Satellites == nil || *s.Satellites != 9 {
		t.Errorf("Satellites = %v, expected 9", s.Satellites)
	}
	if !s.LastUpdate.Equal(at.Add(time.Second)) {
		t.Errorf("LastUpdate = %v", s.LastUpdate)
	}
}

func TestHeadingSentinel(t *testing.T) {
	tests := []struct {
		name string
		msg  mavlink.Message
	}{
		{"gps cog", &mavlink.GPSRawInt{Cog: 65535}},
		{"global position hdg", &mavlink.GlobalPositionInt{Hdg: 65535}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Project(Snapshot{}, frame(tt.msg), time.Now())
			if s.Heading != nil {
				t.Errorf("Heading = %v, expected absent", *s.Heading)
			}
		})
	}
}

func TestGlobalPositionScaling(t *testing.T) {
	s := Project(Snapshot{}, frame(&mavlink.GlobalPositionInt{Alt: 123456, RelativeAlt: 25500, Hdg: 18050}), time.Now())
	if *s.AltitudeMSL != 123.456 {
		t.Errorf("AltitudeMSL = %v", *s.AltitudeMSL)
	}
	if *s.RelativeAltitude != 25.5 {
		t.Errorf("RelativeAltitude = %v", *s.RelativeAltitude)
	}
	if *s.Heading != 180.5 {
		t.Errorf("Heading = %v", *s.Heading)
	}
}

func TestBatteryRules(t *testing.T) {
	s := Project(Snapshot{}, frame(&mavlink.SysStatus{VoltageBattery: 16800, CurrentBattery: -1, BatteryRemaining: -1}), time.Now())
	if *s.BatteryVoltage != 16.8 {
		t.Errorf("BatteryVoltage = %v", *s.BatteryVoltage)
	}
	if s.BatteryCurrent != nil || s.BatteryRemaining != nil {
		t.Errorf("negative readings should be absent, got %v %v", s.BatteryCurrent, s.BatteryRemaining)
	}

	s = Project(s, frame(&mavlink.BatteryStatus{ID: 0, CurrentBattery: 1250, BatteryRemaining: 64}), time.Now())
	if *s.BatteryCurrent != 12.5 || *s.BatteryRemaining != 64 {
		t.Errorf("battery 0 not applied: %v %v", *s.BatteryCurrent, *s.BatteryRemaining)
	}

	s = Project(s, frame(&mavlink.BatteryStatus{ID: 1, CurrentBattery: 500, BatteryRemaining: 10}), time.Now())
	if *s.BatteryCurrent != 12.5 || *s.BatteryRemaining != 64 {
		t.Errorf("secondary battery leaked into snapshot: %v %v", *s.BatteryCurrent, *s.BatteryRemaining)
	}
}

func TestHeartbeat(t *testing.T) {
	hb := &mavlink.Heartbeat{
		CustomMode:     5,
		Type:           mavlink.TypeQuadrotor,
		Autopilot:      mavlink.AutopilotArduPilotMega,
		BaseMode:       0x81,
		SystemStatus:   4,
		MavlinkVersion: 3,
	}
	s := Project(Snapshot{}, frame(hb), time.Now())

	if s.Armed == nil || !*s.Armed {
		t.Errorf("Armed = %v, expected true", s.Armed)
	}
	if *s.Mode != "LOITER" {
		t.Errorf("Mode = %s, expected LOITER", *s.Mode)
	}
	if *s.MavlinkVersion != 3 || *s.SystemStatus != 4 {
		t.Errorf("unexpected version/status %d/%d", *s.MavlinkVersion, *s.SystemStatus)
	}
}

func TestModeName(t *testing.T) {
	tests := []struct {
		hb   mavlink.Heartbeat
		want string
	}{
		{mavlink.Heartbeat{Autopilot: mavlink.AutopilotArduPilotMega, Type: mavlink.TypeFixedWing, CustomMode: 10}, "AUTO"},
		{mavlink.Heartbeat{Autopilot: mavlink.AutopilotArduPilotMega, Type: mavlink.TypeGroundRover, CustomMode: 4}, "HOLD"},
		{mavlink.Heartbeat{Autopilot: mavlink.AutopilotPX4, CustomMode: 3 << 16}, "POSCTL"},
		{mavlink.Heartbeat{Autopilot: mavlink.AutopilotPX4, CustomMode: 4<<16 | 4<<24}, "AUTO_MISSION"},
		{mavlink.Heartbeat{Autopilot: mavlink.AutopilotGeneric, CustomMode: 7}, "CUSTOM(7)"},
		{mavlink.Heartbeat{Autopilot: mavlink.AutopilotArduPilotMega, Type: mavlink.TypeQuadrotor, CustomMode: 99}, "CUSTOM(99)"},
	}

	for _, tt := range tests {
		hb := tt.hb
		if got := modeName(&hb); got != tt.want {
			t.Errorf("modeName(%+v) = %s, expected %s", tt.hb, got, tt.want)
		}
	}
}

func TestStatusTextAndUnknown(t *testing.T) {
	s := Project(Snapshot{}, frame(&mavlink.StatusText{Severity: 2, Text: "Crash: Disarming"}), time.Now())
	if *s.StatusText != "[2] Crash: Disarming" {
		t.Errorf("StatusText = %q", *s.StatusText)
	}

	unknown := &mavlink.Frame{SystemID: 42, ComponentID: 190, Message: &mavlink.Unknown{ID: 999}}
	s = Project(s, unknown, time.Now())
	if *s.SystemID != 42 || *s.ComponentID != 190 {
		t.Errorf("origin = %d/%d", *s.SystemID, *s.ComponentID)
	}
	if *s.StatusText != "[2] Crash: Disarming" {
		t.Error("unknown frame changed StatusText")
	}
}

func TestProjectorPublishesAndResets(t *testing.T) {
	p := NewProjector(nil)
	ch, cancel := p.Subscribe()
	defer cancel()
	<-ch // primed empty

	p.Apply(frame(&mavlink.VFRHUD{Groundspeed: 12, Throttle: 40}))
	got := <-ch
	if got.GroundSpeed == nil || *got.GroundSpeed != 12 || *got.Throttle != 40 {
		t.Errorf("published snapshot %+v", got)
	}

	p.Reset()
	if !(<-ch).Empty() {
		t.Error("expected empty snapshot after reset")
	}
	if !p.Snapshot().Empty() {
		t.Error("Snapshot() not empty after reset")
	}
}
