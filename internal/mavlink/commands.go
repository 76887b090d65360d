package mavlink

import "fmt"

// MAV_CMD values used by the console
const (
	CmdComponentArmDisarm uint16 = 400
	CmdStartRxPair        uint16 = 500
	CmdSetMessageInterval uint16 = 511
)

// MAV_AUTOPILOT values
const (
	AutopilotGeneric       uint8 = 0
	AutopilotArduPilotMega uint8 = 3
	AutopilotInvalid       uint8 = 8
	AutopilotPX4           uint8 = 12
)

// MAV_TYPE values the mode tables distinguish
const (
	TypeFixedWing   uint8 = 1
	TypeQuadrotor   uint8 = 2
	TypeCoaxial     uint8 = 3
	TypeHelicopter  uint8 = 4
	TypeGroundRover uint8 = 10
	TypeSurfaceBoat uint8 = 11
	TypeSubmarine   uint8 = 12
	TypeHexarotor   uint8 = 13
	TypeOctorotor   uint8 = 14
	TypeTricopter   uint8 = 15
)

// ModeFlagSafetyArmed is the MAV_MODE_FLAG bit set while motors are armed
const ModeFlagSafetyArmed uint8 = 0x80

// ArmDisarm builds MAV_CMD_COMPONENT_ARM_DISARM for the target
func ArmDisarm(targetSystem, targetComponent uint8, arm bool) *CommandLong {
	c := &CommandLong{
		Command:         CmdComponentArmDisarm,
		TargetSystem:    targetSystem,
		TargetComponent: targetComponent,
	}
	if arm {
		c.Params[0] = 1
	}
	return c
}

// SetMessageInterval asks the target to stream msgID every intervalUsec microseconds
func SetMessageInterval(targetSystem, targetComponent uint8, msgID uint32, intervalUsec float32) *CommandLong {
	c := &CommandLong{
		Command:         CmdSetMessageInterval,
		TargetSystem:    targetSystem,
		TargetComponent: targetComponent,
	}
	c.Params[0] = float32(msgID)
	c.Params[1] = intervalUsec
	return c
}

// RequestGPSStreams returns the pair of interval requests that enable 1 Hz
// GLOBAL_POSITION_INT and GPS_RAW_INT
func RequestGPSStreams(targetSystem, targetComponent uint8) []Message {
	return []Message{
		SetMessageInterval(targetSystem, targetComponent, MsgIDGlobalPositionInt, 1e6),
		SetMessageInterval(targetSystem, targetComponent, MsgIDGPSRawInt, 1e6),
	}
}

// StartRxPair builds MAV_CMD_START_RX_PAIR
func StartRxPair(targetSystem, targetComponent uint8) *CommandLong {
	return &CommandLong{
		Command:         CmdStartRxPair,
		TargetSystem:    targetSystem,
		TargetComponent: targetComponent,
	}
}

// ParamTypeReal32 is MAV_PARAM_TYPE_REAL32
const ParamTypeReal32 uint8 = 9

// SetParam builds a PARAM_SET for a float parameter. Names longer than 16
// bytes are rejected by the autopilot, so they are refused here.
func SetParam(targetSystem, targetComponent uint8, name string, value float32) (*ParamSet, error) {
	if name == "" || len(name) > 16 {
		return nil, fmt.Errorf("%w: parameter name %q must be 1-16 bytes", ErrInvalidMessage, name)
	}
	return &ParamSet{
		ParamValue:      value,
		TargetSystem:    targetSystem,
		TargetComponent: targetComponent,
		ParamID:         name,
		ParamType:       ParamTypeReal32,
	}, nil
}
