// Package orchestrator owns the two transports and guarantees that at most
// one of them is active. It is the only place where a pipeline failure turns
// into a user-visible Failed state.
package orchestrator

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/allbin/groundlink/internal/link"
	"github.com/allbin/groundlink/internal/mavlink"
	"github.com/allbin/groundlink/internal/observe"
	"github.com/allbin/groundlink/internal/telemetry"
)

type Options struct {
	Transports TransportFactory
	// Server is started after the proxy pipeline; nil runs proxy mode bare
	Server Server
	// AllowModeSwitch lets Connect tear down the other mode instead of
	// rejecting with ErrOtherModeActive
	AllowModeSwitch bool
	Log             *zap.Logger
}

type Orchestrator struct {
	transports  map[Mode]Transport
	server      Server
	allowSwitch bool
	projector   *telemetry.Projector
	log         *zap.Logger

	mu         sync.Mutex
	connecting bool
	closed     bool
	serverDone <-chan struct{}
	// cancels ends the context each mode was connected with
	cancels map[Mode]context.CancelFunc
	status  *observe.Value[Status]
}

func New(opts Options) (*Orchestrator, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	o := &Orchestrator{
		transports:  make(map[Mode]Transport, 2),
		server:      opts.Server,
		allowSwitch: opts.AllowModeSwitch,
		projector:   telemetry.NewProjector(log),
		log:         log,
		status:      observe.NewValue(Status{}),
		cancels:     make(map[Mode]context.CancelFunc, 2),
	}
	for _, m := range []Mode{ModeDirect, ModeProxy} {
		t, err := opts.Transports(m, o.hooks(m))
		if err != nil {
			return nil, fmt.Errorf("%s transport: %w", m, err)
		}
		o.transports[m] = t
	}
	return o, nil
}

func (o *Orchestrator) hooks(m Mode) link.Hooks {
	log := o.log.With(zap.Stringer("mode", m))
	return link.Hooks{
		OnState: func(s link.PipelineState) {
			log.Debug("pipeline state", zap.Stringer("state", s))
		},
		OnFrame: o.projector.Apply,
		OnReset: o.projector.Reset,
		OnExit: func(err error) {
			if err == nil {
				err = ErrLinkLost
			}
			o.fail(m, err)
		},
	}
}

// Status returns both modes' states
func (o *Orchestrator) Status() Status {
	return o.status.Load()
}

func (o *Orchestrator) State(m Mode) ConnectionState {
	return o.status.Load().Of(m)
}

// States follows status changes, latest wins
func (o *Orchestrator) States() (<-chan Status, func()) {
	return o.status.Subscribe()
}

// Telemetry follows snapshot replacements, latest wins
func (o *Orchestrator) Telemetry() (<-chan telemetry.Snapshot, func()) {
	return o.projector.Subscribe()
}

func (o *Orchestrator) Snapshot() telemetry.Snapshot {
	return o.projector.Snapshot()
}

func (o *Orchestrator) setState(m Mode, cs ConnectionState, from ...Phase) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.setLocked(m, cs, from...)
}

// setLocked must be called with o.mu held
func (o *Orchestrator) setLocked(m Mode, cs ConnectionState, from ...Phase) bool {
	cur := o.status.Load().Of(m)
	if len(from) > 0 && !slices.Contains(from, cur.Phase) {
		return false
	}
	o.status.Update(func(s Status) Status { return s.with(m, cs) })
	o.log.Info("connection state",
		zap.Stringer("mode", m),
		zap.Stringer("phase", cs.Phase),
		zap.NamedError("reason", cs.Reason))
	return true
}

// Connect brings mode up on device. ctx bounds the whole connection: the
// link is stopped when it is cancelled. Connect returns once the transport is
// Connected or has failed.
func (o *Orchestrator) Connect(ctx context.Context, mode Mode, device string) error {
	if mode != ModeDirect && mode != ModeProxy {
		return ErrInvalidMode
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if o.connecting {
		o.mu.Unlock()
		return ErrConnectInProgress
	}
	st := o.status.Load()
	switch st.Of(mode).Phase {
	case PhaseConnected:
		o.mu.Unlock()
		return ErrAlreadyConnected
	case PhaseConnecting, PhaseDisconnecting:
		o.mu.Unlock()
		return ErrConnectInProgress
	}
	other := mode.other()
	switchOver := st.Of(other).active()
	if switchOver && !o.allowSwitch {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrOtherModeActive, other)
	}
	o.connecting = true
	ctx, cancel := context.WithCancel(ctx)
	o.cancels[mode] = cancel
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.connecting = false
		o.mu.Unlock()
	}()

	log := o.log.With(zap.Stringer("mode", mode), zap.String("device", device))

	if switchOver {
		log.Info("switching transport", zap.Stringer("from", other))
		o.Disconnect(other)
	}

	o.setState(mode, ConnectionState{Phase: PhaseConnecting})

	if err := o.transports[mode].Start(ctx, device); err != nil {
		log.Error("connect failed", zap.Error(err))
		o.mu.Lock()
		if o.setLocked(mode, ConnectionState{Phase: PhaseFailed, Reason: err}, PhaseConnecting) {
			o.takeCancelLocked(mode)()
		}
		o.mu.Unlock()
		return err
	}

	if mode == ModeProxy && o.server != nil {
		if err := o.server.Start(ctx); err != nil {
			err = fmt.Errorf("protocol server: %w", err)
			o.fail(mode, err)
			return err
		}
		done := o.server.Done()
		o.mu.Lock()
		o.serverDone = done
		o.mu.Unlock()
		go o.watchServer(done)
	}

	o.mu.Lock()
	connected := o.setLocked(mode, ConnectionState{Phase: PhaseConnected}, PhaseConnecting)
	if !connected && mode == ModeProxy {
		o.serverDone = nil
	}
	o.mu.Unlock()
	if !connected {
		// lost or disconnected while coming up: a Stop that raced Start may
		// have found nothing to stop yet
		log.Info("connect superseded, stopping transport")
		o.stopTransport(mode)
		if cur := o.State(mode); cur.Reason != nil {
			return cur.Reason
		}
		return link.ErrStopped
	}
	return nil
}

func (o *Orchestrator) watchServer(done <-chan struct{}) {
	if done == nil {
		return
	}
	<-done

	o.mu.Lock()
	current := o.serverDone == done
	o.mu.Unlock()
	if !current {
		return
	}
	o.fail(ModeProxy, fmt.Errorf("%w: %v", ErrServerExited, o.server.Err()))
}

// fail tears mode down after a fatal error. Requested disconnects win: a
// mode already Disconnecting is left alone.
func (o *Orchestrator) fail(m Mode, reason error) {
	o.mu.Lock()
	ok := o.setLocked(m, ConnectionState{Phase: PhaseDisconnecting}, PhaseConnecting, PhaseConnected)
	var cancel context.CancelFunc
	if ok {
		cancel = o.takeCancelLocked(m)
		if m == ModeProxy {
			o.serverDone = nil
		}
	}
	o.mu.Unlock()
	if !ok {
		return
	}

	o.log.Error("link failed", zap.Stringer("mode", m), zap.Error(reason))
	o.stopTransport(m)
	cancel()
	o.setState(m, ConnectionState{Phase: PhaseFailed, Reason: reason})
}

// takeCancelLocked must be called with o.mu held. The returned func is
// never nil.
func (o *Orchestrator) takeCancelLocked(m Mode) context.CancelFunc {
	cancel := o.cancels[m]
	delete(o.cancels, m)
	if cancel == nil {
		return func() {}
	}
	return cancel
}

func (o *Orchestrator) stopTransport(m Mode) {
	if err := o.transports[m].Stop(); err != nil {
		o.log.Warn("transport stop failed", zap.Stringer("mode", m), zap.Error(err))
	}
	if m == ModeProxy && o.server != nil {
		if err := o.server.Stop(); err != nil {
			o.log.Warn("protocol server stop failed", zap.Error(err))
		}
	}
}

// Disconnect drives mode to Idle and returns when it is there. It is a no-op
// for an idle mode and clears a Failed one.
func (o *Orchestrator) Disconnect(mode Mode) error {
	if mode != ModeDirect && mode != ModeProxy {
		return ErrInvalidMode
	}

	o.mu.Lock()
	cur := o.status.Load().Of(mode)
	switch cur.Phase {
	case PhaseIdle:
		o.mu.Unlock()
		return nil
	case PhaseFailed:
		o.setLocked(mode, ConnectionState{Phase: PhaseIdle})
		o.mu.Unlock()
		return nil
	}
	o.setLocked(mode, ConnectionState{Phase: PhaseDisconnecting})
	cancel := o.takeCancelLocked(mode)
	if mode == ModeProxy {
		o.serverDone = nil
	}
	o.mu.Unlock()

	o.stopTransport(mode)
	// also wakes a Connect that has not reached the server yet
	cancel()
	o.setState(mode, ConnectionState{Phase: PhaseIdle}, PhaseDisconnecting)
	return nil
}

// SendCommand writes msg over the direct link. Errors are returned to the
// caller; they never change the connection state.
func (o *Orchestrator) SendCommand(msg mavlink.Message) error {
	if o.State(ModeDirect).Phase != PhaseConnected {
		return ErrNoActiveLink
	}
	return o.transports[ModeDirect].Send(msg)
}

// Close disconnects both modes and rejects further connects
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	for _, m := range []Mode{ModeDirect, ModeProxy} {
		o.Disconnect(m)
	}
	return nil
}
