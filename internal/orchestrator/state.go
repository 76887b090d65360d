package orchestrator

import (
	"fmt"
	"strings"
)

// Mode selects the transport
type Mode int

const (
	ModeNone Mode = iota
	ModeDirect
	ModeProxy
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeDirect:
		return "direct"
	case ModeProxy:
		return "proxy"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "direct" or "proxy"
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct":
		return ModeDirect, nil
	case "proxy":
		return ModeProxy, nil
	default:
		return ModeNone, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

func (m Mode) other() Mode {
	switch m {
	case ModeDirect:
		return ModeProxy
	case ModeProxy:
		return ModeDirect
	default:
		return ModeNone
	}
}

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseDisconnecting
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseDisconnecting:
		return "disconnecting"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ConnectionState is what the operator sees for one mode. Reason is set only
// when Phase is PhaseFailed.
type ConnectionState struct {
	Phase  Phase
	Reason error
}

func (s ConnectionState) String() string {
	if s.Phase == PhaseFailed && s.Reason != nil {
		return fmt.Sprintf("failed: %v", s.Reason)
	}
	return s.Phase.String()
}

// active reports whether the mode holds, or is acquiring, a transport
func (s ConnectionState) active() bool {
	return s.Phase == PhaseConnecting || s.Phase == PhaseConnected || s.Phase == PhaseDisconnecting
}

// Status is the published view of both modes
type Status struct {
	Active Mode
	Direct ConnectionState
	Proxy  ConnectionState
}

// Of returns the state of one mode
func (s Status) Of(m Mode) ConnectionState {
	switch m {
	case ModeDirect:
		return s.Direct
	case ModeProxy:
		return s.Proxy
	default:
		return ConnectionState{}
	}
}

func (s Status) with(m Mode, cs ConnectionState) Status {
	switch m {
	case ModeDirect:
		s.Direct = cs
	case ModeProxy:
		s.Proxy = cs
	}
	switch {
	case cs.Phase == PhaseConnected:
		s.Active = m
	case s.Active == m && !cs.active():
		s.Active = ModeNone
	}
	return s
}
