package link

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/allbin/groundlink/internal/mavlink"
	"github.com/allbin/groundlink/serial"
)

// ProxyConfig tunes the UDP bridge pipeline
type ProxyConfig struct {
	PeerAddress string // loopback UDP address of the protocol server
	Bridge      BridgeConfig
	Tap         bool // decode a copy of the stream for telemetry
	TapCapacity int
}

func DefaultProxyConfig() ProxyConfig {
	return ProxyConfig{
		PeerAddress: "127.0.0.1:14540",
		Bridge:      DefaultBridgeConfig(),
		Tap:         true,
		TapCapacity: 64,
	}
}

// DialFunc connects the datagram side
type DialFunc func(addr string) (DatagramConn, error)

func dialUDP(addr string) (DatagramConn, error) {
	return net.Dial("udp", addr)
}

// ProxyPipeline forwards a serial device to an external protocol server over
// UDP. It is Running as soon as both ends are open; whether the server
// understands the stream is the orchestrator's concern.
type ProxyPipeline struct {
	cfg        ProxyConfig
	open       OpenFunc
	dial       DialFunc
	newDecoder DecoderFactory
	hooks      Hooks
	log        *zap.Logger

	hookMu sync.Mutex
	mu     sync.Mutex
	state   PipelineState
	res     *proxyResources
	opening *openAttempt
}

type proxyResources struct {
	port   Port
	conn   DatagramConn
	tap    *DecodeTap
	cancel context.CancelFunc

	bridgeDone chan struct{}
	bridgeErr  error

	stopOnce sync.Once
	done     chan struct{}
}

func NewProxyPipeline(cfg ProxyConfig, open OpenFunc, dial DialFunc, dec DecoderFactory, hooks Hooks, log *zap.Logger) *ProxyPipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if dial == nil {
		dial = dialUDP
	}
	if dec == nil {
		dec = MAVLinkDecoder
	}
	return &ProxyPipeline{
		cfg:        cfg,
		open:       open,
		dial:       dial,
		newDecoder: dec,
		hooks:      hooks,
		log:        log.With(zap.String("pipeline", "proxy")),
	}
}

func (p *ProxyPipeline) State() PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *ProxyPipeline) transition(s PipelineState, from ...PipelineState) bool {
	p.hookMu.Lock()
	defer p.hookMu.Unlock()

	p.mu.Lock()
	if len(from) > 0 && !slices.Contains(from, p.state) {
		p.mu.Unlock()
		return false
	}
	p.state = s
	if s == StateIdle {
		p.res = nil
	}
	p.mu.Unlock()

	p.hooks.state(s)
	return true
}

func (p *ProxyPipeline) begin(a *openAttempt) bool {
	p.hookMu.Lock()
	defer p.hookMu.Unlock()

	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return false
	}
	p.state = StateOpening
	p.opening = a
	p.mu.Unlock()

	p.hooks.state(StateOpening)
	return true
}

func (p *ProxyPipeline) abandon(a *openAttempt) {
	p.mu.Lock()
	p.opening = nil
	p.mu.Unlock()
	p.transition(StateIdle)
	close(a.done)
}

// endpoints is what the opening phase produces
type endpoints struct {
	port Port
	conn DatagramConn
}

func (e endpoints) close() {
	e.conn.Close()
	e.port.Close()
}

// Start opens device, connects the UDP peer and launches the bridge. It
// returns once the bridge is running; ctx cancellation later stops it.
func (p *ProxyPipeline) Start(ctx context.Context, device string) error {
	attempt := newOpenAttempt()
	if !p.begin(attempt) {
		return ErrAlreadyRunning
	}

	log := p.log.With(zap.String("device", device), zap.String("peer", p.cfg.PeerAddress))

	ends, err := awaitOpen(ctx, attempt, func() (endpoints, error) {
		port, err := p.open(device)
		if err != nil {
			return endpoints{}, fmt.Errorf("open %s: %w", device, err)
		}
		conn, err := p.dial(p.cfg.PeerAddress)
		if err != nil {
			port.Close()
			return endpoints{}, fmt.Errorf("dial %s: %w", p.cfg.PeerAddress, err)
		}
		return endpoints{port: port, conn: conn}, nil
	}, endpoints.close)
	if err != nil {
		p.abandon(attempt)
		return err
	}
	port, conn := ends.port, ends.conn

	bridgeCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	res := &proxyResources{
		port:       port,
		conn:       conn,
		cancel:     cancel,
		bridgeDone: make(chan struct{}),
		done:       make(chan struct{}),
	}

	bridge := NewDatagramBridge(port, conn, p.cfg.Bridge, log)
	if p.cfg.Tap {
		res.tap = StartDecodeTap(p.cfg.TapCapacity, p.newDecoder, p.hooks.frame, log)
		bridge.SetTap(res.tap.Offer)
	}

	p.mu.Lock()
	if attempt.aborted() {
		p.mu.Unlock()
		if res.tap != nil {
			res.tap.Close()
		}
		cancel()
		ends.close()
		p.abandon(attempt)
		log.Info("proxy link stopped while opening")
		return ErrStopped
	}
	p.res = res
	p.opening = nil
	p.mu.Unlock()
	close(attempt.done)

	go func() {
		defer close(res.bridgeDone)
		res.bridgeErr = bridge.Run(bridgeCtx)
	}()

	go func() {
		select {
		case <-res.bridgeDone:
		case <-ctx.Done():
		case <-res.done:
			return
		}
		p.teardown(res, log)
	}()

	p.transition(StateRunning, StateOpening)
	log.Info("proxy link running")
	return nil
}

// teardown runs once per Start: join bridge, close tap, socket and port,
// reset telemetry, report.
func (p *ProxyPipeline) teardown(res *proxyResources, log *zap.Logger) {
	res.stopOnce.Do(func() {
		p.transition(StateClosing)

		res.cancel()
		<-res.bridgeDone
		if res.bridgeErr != nil {
			log.Warn("proxy bridge failed, tearing down", zap.Error(res.bridgeErr))
		} else {
			log.Info("proxy link stopping")
		}

		if res.tap != nil {
			res.tap.Close()
			if n := res.tap.Dropped(); n > 0 {
				log.Debug("telemetry tap dropped chunks", zap.Int64("chunks", n))
			}
		}

		if err := res.conn.Close(); err != nil {
			log.Debug("socket close failed", zap.Error(err))
		}
		if err := res.port.Close(); err != nil && !errors.Is(err, serial.ErrPortClosed) {
			log.Warn("port close failed", zap.Error(err))
		}

		p.hooks.reset()
		p.transition(StateIdle)
		p.hooks.exit(res.bridgeErr)

		log.Info("proxy link closed")
		close(res.done)
	})
	<-res.done
}

// Stop tears the pipeline down and waits for it. No-op when idle; a Start
// still opening is aborted and returns ErrStopped.
func (p *ProxyPipeline) Stop() error {
	p.mu.Lock()
	res, attempt := p.res, p.opening
	if res == nil && attempt != nil {
		attempt.cancel()
	}
	p.mu.Unlock()

	switch {
	case res != nil:
		p.teardown(res, p.log)
	case attempt != nil:
		<-attempt.done
	}
	return nil
}

// Send is not available in proxy mode; the protocol server owns the uplink.
func (p *ProxyPipeline) Send(mavlink.Message) error {
	return ErrNotRunning
}
