package orchestrator

import "errors"

var (
	ErrConnectInProgress = errors.New("a connect is already in progress")
	ErrAlreadyConnected  = errors.New("mode is already connected")
	ErrOtherModeActive   = errors.New("the other transport is active")
	ErrInvalidMode       = errors.New("invalid transport mode")
	ErrNoActiveLink      = errors.New("no direct link is connected")
	ErrLinkLost          = errors.New("link closed unexpectedly")
	ErrClosed            = errors.New("orchestrator closed")

	ErrServerExited   = errors.New("protocol server exited")
	ErrServerNotReady = errors.New("protocol server did not report ready in time")
)
