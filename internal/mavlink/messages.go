package mavlink

import (
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/minimal"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/standard"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
)

// Message is a decoded MAVLink payload. The set of implementations is closed:
// the types below plus Unknown.
type Message interface {
	MessageID() uint32
	// dialect converts to the wire definition; nil when it has none
	dialect() message.Message
}

// Message IDs groundlink understands
const (
	MsgIDHeartbeat         uint32 = 0
	MsgIDSysStatus         uint32 = 1
	MsgIDParamSet          uint32 = 23
	MsgIDGPSRawInt         uint32 = 24
	MsgIDAttitude          uint32 = 30
	MsgIDGlobalPositionInt uint32 = 33
	MsgIDVFRHUD            uint32 = 74
	MsgIDCommandLong       uint32 = 76
	MsgIDCommandAck        uint32 = 77
	MsgIDBatteryStatus     uint32 = 147
	MsgIDStatusText        uint32 = 253
)

// Heartbeat announces a system and its state
type Heartbeat struct {
	CustomMode     uint32
	Type           uint8
	Autopilot      uint8
	BaseMode       uint8
	SystemStatus   uint8
	MavlinkVersion uint8
}

func (*Heartbeat) MessageID() uint32 { return MsgIDHeartbeat }

func (m *Heartbeat) dialect() message.Message {
	return &minimal.MessageHeartbeat{
		Type:           minimal.MAV_TYPE(m.Type),
		Autopilot:      minimal.MAV_AUTOPILOT(m.Autopilot),
		BaseMode:       minimal.MAV_MODE_FLAG(m.BaseMode),
		CustomMode:     m.CustomMode,
		SystemStatus:   minimal.MAV_STATE(m.SystemStatus),
		MavlinkVersion: m.MavlinkVersion,
	}
}

// SysStatus carries onboard health and the main battery readings.
// CurrentBattery is in cA and BatteryRemaining in percent, -1 when unknown.
type SysStatus struct {
	SensorsPresent   uint32
	SensorsEnabled   uint32
	SensorsHealth    uint32
	Load             uint16
	VoltageBattery   uint16 // mV
	CurrentBattery   int16
	DropRateComm     uint16
	ErrorsComm       uint16
	ErrorsCount      [4]uint16
	BatteryRemaining int8
}

func (*SysStatus) MessageID() uint32 { return MsgIDSysStatus }

func (m *SysStatus) dialect() message.Message {
	return &common.MessageSysStatus{
		OnboardControlSensorsPresent: common.MAV_SYS_STATUS_SENSOR(m.SensorsPresent),
		OnboardControlSensorsEnabled: common.MAV_SYS_STATUS_SENSOR(m.SensorsEnabled),
		OnboardControlSensorsHealth:  common.MAV_SYS_STATUS_SENSOR(m.SensorsHealth),
		Load:                         m.Load,
		VoltageBattery:               m.VoltageBattery,
		CurrentBattery:               m.CurrentBattery,
		BatteryRemaining:             m.BatteryRemaining,
		DropRateComm:                 m.DropRateComm,
		ErrorsComm:                   m.ErrorsComm,
		ErrorsCount1:                 m.ErrorsCount[0],
		ErrorsCount2:                 m.ErrorsCount[1],
		ErrorsCount3:                 m.ErrorsCount[2],
		ErrorsCount4:                 m.ErrorsCount[3],
	}
}

// ParamSet writes one onboard parameter
type ParamSet struct {
	ParamValue      float32
	TargetSystem    uint8
	TargetComponent uint8
	ParamID         string // at most 16 bytes
	ParamType       uint8
}

func (*ParamSet) MessageID() uint32 { return MsgIDParamSet }

func (m *ParamSet) dialect() message.Message {
	return &common.MessageParamSet{
		TargetSystem:    m.TargetSystem,
		TargetComponent: m.TargetComponent,
		ParamId:         m.ParamID,
		ParamValue:      m.ParamValue,
		ParamType:       common.MAV_PARAM_TYPE(m.ParamType),
	}
}

// GPSRawInt is the raw receiver fix. Cog is in cdeg, 65535 when unknown.
type GPSRawInt struct {
	TimeUsec          uint64
	Lat               int32 // degE7
	Lon               int32 // degE7
	Alt               int32 // mm
	Eph               uint16
	Epv               uint16
	Vel               uint16
	Cog               uint16
	FixType           uint8
	SatellitesVisible uint8
}

func (*GPSRawInt) MessageID() uint32 { return MsgIDGPSRawInt }

func (m *GPSRawInt) dialect() message.Message {
	return &common.MessageGpsRawInt{
		TimeUsec:          m.TimeUsec,
		FixType:           common.GPS_FIX_TYPE(m.FixType),
		Lat:               m.Lat,
		Lon:               m.Lon,
		Alt:               m.Alt,
		Eph:               m.Eph,
		Epv:               m.Epv,
		Vel:               m.Vel,
		Cog:               m.Cog,
		SatellitesVisible: m.SatellitesVisible,
	}
}

// Attitude angles are in radians
type Attitude struct {
	TimeBootMs uint32
	Roll       float32
	Pitch      float32
	Yaw        float32
	RollSpeed  float32
	PitchSpeed float32
	YawSpeed   float32
}

func (*Attitude) MessageID() uint32 { return MsgIDAttitude }

func (m *Attitude) dialect() message.Message {
	return &common.MessageAttitude{
		TimeBootMs: m.TimeBootMs,
		Roll:       m.Roll,
		Pitch:      m.Pitch,
		Yaw:        m.Yaw,
		Rollspeed:  m.RollSpeed,
		Pitchspeed: m.PitchSpeed,
		Yawspeed:   m.YawSpeed,
	}
}

// GlobalPositionInt is the fused position estimate. Hdg is in cdeg, 65535 when unknown.
type GlobalPositionInt struct {
	TimeBootMs  uint32
	Lat         int32 // degE7
	Lon         int32 // degE7
	Alt         int32 // mm MSL
	RelativeAlt int32 // mm above home
	Vx          int16
	Vy          int16
	Vz          int16
	Hdg         uint16
}

func (*GlobalPositionInt) MessageID() uint32 { return MsgIDGlobalPositionInt }

func (m *GlobalPositionInt) dialect() message.Message {
	return &standard.MessageGlobalPositionInt{
		TimeBootMs:  m.TimeBootMs,
		Lat:         m.Lat,
		Lon:         m.Lon,
		Alt:         m.Alt,
		RelativeAlt: m.RelativeAlt,
		Vx:          m.Vx,
		Vy:          m.Vy,
		Vz:          m.Vz,
		Hdg:         m.Hdg,
	}
}

// VFRHUD holds the values shown on a head-up display
type VFRHUD struct {
	Airspeed    float32
	Groundspeed float32
	Alt         float32
	Climb       float32
	Heading     int16
	Throttle    uint16 // percent
}

func (*VFRHUD) MessageID() uint32 { return MsgIDVFRHUD }

func (m *VFRHUD) dialect() message.Message {
	return &common.MessageVfrHud{
		Airspeed:    m.Airspeed,
		Groundspeed: m.Groundspeed,
		Heading:     m.Heading,
		Throttle:    m.Throttle,
		Alt:         m.Alt,
		Climb:       m.Climb,
	}
}

// CommandLong carries a MAV_CMD with up to seven float parameters
type CommandLong struct {
	Params          [7]float32
	Command         uint16
	TargetSystem    uint8
	TargetComponent uint8
	Confirmation    uint8
}

func (*CommandLong) MessageID() uint32 { return MsgIDCommandLong }

func (m *CommandLong) dialect() message.Message {
	return &common.MessageCommandLong{
		TargetSystem:    m.TargetSystem,
		TargetComponent: m.TargetComponent,
		Command:         common.MAV_CMD(m.Command),
		Confirmation:    m.Confirmation,
		Param1:          m.Params[0],
		Param2:          m.Params[1],
		Param3:          m.Params[2],
		Param4:          m.Params[3],
		Param5:          m.Params[4],
		Param6:          m.Params[5],
		Param7:          m.Params[6],
	}
}

// CommandAck reports the outcome of a CommandLong
type CommandAck struct {
	Command uint16
	Result  uint8
}

func (*CommandAck) MessageID() uint32 { return MsgIDCommandAck }

func (m *CommandAck) dialect() message.Message {
	return &common.MessageCommandAck{
		Command: common.MAV_CMD(m.Command),
		Result:  common.MAV_RESULT(m.Result),
	}
}

// BatteryStatus describes one battery. CurrentBattery is in cA, -1 when
// unknown; BatteryRemaining is in percent, -1 when unknown.
type BatteryStatus struct {
	CurrentConsumed  int32
	EnergyConsumed   int32
	Temperature      int16
	Voltages         [10]uint16
	CurrentBattery   int16
	ID               uint8
	BatteryFunction  uint8
	Type             uint8
	BatteryRemaining int8
}

func (*BatteryStatus) MessageID() uint32 { return MsgIDBatteryStatus }

func (m *BatteryStatus) dialect() message.Message {
	return &common.MessageBatteryStatus{
		Id:               m.ID,
		BatteryFunction:  common.MAV_BATTERY_FUNCTION(m.BatteryFunction),
		Type:             common.MAV_BATTERY_TYPE(m.Type),
		Temperature:      m.Temperature,
		Voltages:         m.Voltages,
		CurrentBattery:   m.CurrentBattery,
		CurrentConsumed:  m.CurrentConsumed,
		EnergyConsumed:   m.EnergyConsumed,
		BatteryRemaining: m.BatteryRemaining,
	}
}

// StatusText is a human readable message from the vehicle.
// Text is cut at the first NUL.
type StatusText struct {
	Severity uint8
	Text     string
}

func (*StatusText) MessageID() uint32 { return MsgIDStatusText }

func (m *StatusText) dialect() message.Message {
	return &common.MessageStatustext{
		Severity: common.MAV_SEVERITY(m.Severity),
		Text:     m.Text,
	}
}

// Unknown is a frame that passed its checksum but carries a message
// groundlink does not look at. It cannot be sent.
type Unknown struct {
	ID uint32
}

func (m *Unknown) MessageID() uint32        { return m.ID }
func (m *Unknown) dialect() message.Message { return nil }

// fromDialect maps a decoded wire message onto the types above
func fromDialect(msg message.Message) Message {
	switch m := msg.(type) {
	case *minimal.MessageHeartbeat:
		return &Heartbeat{
			CustomMode:     m.CustomMode,
			Type:           uint8(m.Type),
			Autopilot:      uint8(m.Autopilot),
			BaseMode:       uint8(m.BaseMode),
			SystemStatus:   uint8(m.SystemStatus),
			MavlinkVersion: m.MavlinkVersion,
		}
	case *common.MessageSysStatus:
		return &SysStatus{
			SensorsPresent:   uint32(m.OnboardControlSensorsPresent),
			SensorsEnabled:   uint32(m.OnboardControlSensorsEnabled),
			SensorsHealth:    uint32(m.OnboardControlSensorsHealth),
			Load:             m.Load,
			VoltageBattery:   m.VoltageBattery,
			CurrentBattery:   m.CurrentBattery,
			DropRateComm:     m.DropRateComm,
			ErrorsComm:       m.ErrorsComm,
			ErrorsCount:      [4]uint16{m.ErrorsCount1, m.ErrorsCount2, m.ErrorsCount3, m.ErrorsCount4},
			BatteryRemaining: m.BatteryRemaining,
		}
	case *common.MessageParamSet:
		return &ParamSet{
			ParamValue:      m.ParamValue,
			TargetSystem:    m.TargetSystem,
			TargetComponent: m.TargetComponent,
			ParamID:         m.ParamId,
			ParamType:       uint8(m.ParamType),
		}
	case *common.MessageGpsRawInt:
		return &GPSRawInt{
			TimeUsec:          m.TimeUsec,
			Lat:               m.Lat,
			Lon:               m.Lon,
			Alt:               m.Alt,
			Eph:               m.Eph,
			Epv:               m.Epv,
			Vel:               m.Vel,
			Cog:               m.Cog,
			FixType:           uint8(m.FixType),
			SatellitesVisible: m.SatellitesVisible,
		}
	case *common.MessageAttitude:
		return &Attitude{
			TimeBootMs: m.TimeBootMs,
			Roll:       m.Roll,
			Pitch:      m.Pitch,
			Yaw:        m.Yaw,
			RollSpeed:  m.Rollspeed,
			PitchSpeed: m.Pitchspeed,
			YawSpeed:   m.Yawspeed,
		}
	case *standard.MessageGlobalPositionInt:
		return &GlobalPositionInt{
			TimeBootMs:  m.TimeBootMs,
			Lat:         m.Lat,
			Lon:         m.Lon,
			Alt:         m.Alt,
			RelativeAlt: m.RelativeAlt,
			Vx:          m.Vx,
			Vy:          m.Vy,
			Vz:          m.Vz,
			Hdg:         m.Hdg,
		}
	case *common.MessageVfrHud:
		return &VFRHUD{
			Airspeed:    m.Airspeed,
			Groundspeed: m.Groundspeed,
			Alt:         m.Alt,
			Climb:       m.Climb,
			Heading:     m.Heading,
			Throttle:    m.Throttle,
		}
	case *common.MessageCommandLong:
		return &CommandLong{
			Params:          [7]float32{m.Param1, m.Param2, m.Param3, m.Param4, m.Param5, m.Param6, m.Param7},
			Command:         uint16(m.Command),
			TargetSystem:    m.TargetSystem,
			TargetComponent: m.TargetComponent,
			Confirmation:    m.Confirmation,
		}
	case *common.MessageCommandAck:
		return &CommandAck{Command: uint16(m.Command), Result: uint8(m.Result)}
	case *common.MessageBatteryStatus:
		return &BatteryStatus{
			CurrentConsumed:  m.CurrentConsumed,
			EnergyConsumed:   m.EnergyConsumed,
			Temperature:      m.Temperature,
			Voltages:         m.Voltages,
			CurrentBattery:   m.CurrentBattery,
			ID:               m.Id,
			BatteryFunction:  uint8(m.BatteryFunction),
			Type:             uint8(m.Type),
			BatteryRemaining: m.BatteryRemaining,
		}
	case *common.MessageStatustext:
		return &StatusText{Severity: uint8(m.Severity), Text: m.Text}
	default:
		return &Unknown{ID: msg.GetID()}
	}
}
