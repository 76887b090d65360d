// Package telemetry projects decoded MAVLink frames onto a single snapshot of
// vehicle state.
package telemetry

import "time"

// Snapshot is the latest known vehicle state. Nil fields have not been
// reported yet, or were reported as unknown by the vehicle.
type Snapshot struct {
	FixType          *uint8   `yaml:"fix_type,omitempty"`
	Satellites       *int     `yaml:"satellites,omitempty"`
	Latitude         *float64 `yaml:"latitude,omitempty"`
	Longitude        *float64 `yaml:"longitude,omitempty"`
	AltitudeMSL      *float64 `yaml:"altitude_msl,omitempty"`
	RelativeAltitude *float64 `yaml:"relative_altitude,omitempty"`
	Heading          *float64 `yaml:"heading,omitempty"`
	GroundSpeed      *float64 `yaml:"ground_speed,omitempty"`
	AirSpeed         *float64 `yaml:"air_speed,omitempty"`
	Throttle         *int     `yaml:"throttle,omitempty"`
	ClimbRate        *float64 `yaml:"climb_rate,omitempty"`
	Roll             *float64 `yaml:"roll,omitempty"`
	Pitch            *float64 `yaml:"pitch,omitempty"`
	Yaw              *float64 `yaml:"yaw,omitempty"`
	Armed            *bool    `yaml:"armed,omitempty"`
	Mode             *string  `yaml:"mode,omitempty"`
	BatteryVoltage   *float64 `yaml:"battery_voltage,omitempty"`
	BatteryCurrent   *float64 `yaml:"battery_current,omitempty"`
	BatteryRemaining *int     `yaml:"battery_remaining,omitempty"`
	StatusText       *string  `yaml:"status_text,omitempty"`
	MavlinkVersion   *int     `yaml:"mavlink_version,omitempty"`
	Autopilot        *uint8   `yaml:"autopilot,omitempty"`
	SystemStatus     *uint8   `yaml:"system_status,omitempty"`
	SystemID         *uint8   `yaml:"system_id,omitempty"`
	ComponentID      *uint8   `yaml:"component_id,omitempty"`

	LastUpdate time.Time `yaml:"last_update,omitempty"`
}

// Empty reports whether nothing has been received since the last reset
func (s Snapshot) Empty() bool {
	return s.LastUpdate.IsZero()
}

func ptr[T any](v T) *T { return &v }
