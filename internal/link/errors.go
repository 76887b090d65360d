package link

import "errors"

var (
	// ErrChannelClosed is returned by Send after Close. It is benign: late
	// chunks from a reader racing teardown are dropped.
	ErrChannelClosed = errors.New("byte channel closed")

	ErrSinkClosed     = errors.New("command sink closed")
	ErrAlreadyRunning = errors.New("pipeline already running")
	ErrNotRunning     = errors.New("pipeline not running")
	ErrNotReady       = errors.New("no telemetry received before ready timeout")
	ErrStopped        = errors.New("pipeline stopped before it was ready")
	ErrStreamEnded    = errors.New("telemetry stream ended")
	ErrOverflow       = errors.New("decoder fell behind the serial stream")
)
