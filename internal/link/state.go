package link

import "github.com/allbin/groundlink/internal/mavlink"

// PipelineState is the lifecycle of one transport pipeline
type PipelineState int

const (
	StateIdle PipelineState = iota
	StateOpening
	StateRunning
	StateClosing
)

func (s PipelineState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateRunning:
		return "running"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Hooks connect a pipeline to its owner. All fields are optional.
type Hooks struct {
	// OnState observes every lifecycle transition
	OnState func(PipelineState)
	// OnFrame receives decoded frames from the decode loop or telemetry tap
	OnFrame func(*mavlink.Frame)
	// OnReset runs during teardown, after the port is closed
	OnReset func()
	// OnExit fires once per successful Start when the pipeline is back to
	// Idle. err is nil for a requested stop.
	OnExit func(err error)
}

func (h Hooks) state(s PipelineState) {
	if h.OnState != nil {
		h.OnState(s)
	}
}

func (h Hooks) frame(f *mavlink.Frame) {
	if h.OnFrame != nil {
		h.OnFrame(f)
	}
}

func (h Hooks) reset() {
	if h.OnReset != nil {
		h.OnReset()
	}
}

func (h Hooks) exit(err error) {
	if h.OnExit != nil {
		h.OnExit(err)
	}
}
