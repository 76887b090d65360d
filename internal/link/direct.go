package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/allbin/groundlink/internal/mavlink"
	"github.com/allbin/groundlink/serial"
)

// errStopping is what the decode loop sees when teardown closes its pipe
var errStopping = errors.New("pipeline stopping")

// DirectConfig tunes the in-process pipeline
type DirectConfig struct {
	ChannelCapacity int
	// SendWait is the longest the read loop waits on a full channel; the
	// chunk is then dropped. MaxDrops drops in a row fail the link with
	// ErrOverflow, 0 only logs them.
	SendWait        time.Duration
	MaxDrops        int
	PollInterval    time.Duration // serial read timeout
	ReadBufferSize  int
	WriteTimeout    time.Duration
	ReadyTimeout    time.Duration // 0 waits forever for the first frame
	SystemID        uint8         // identity used for outgoing frames
	ComponentID     uint8
}

func DefaultDirectConfig() DirectConfig {
	return DirectConfig{
		ChannelCapacity: 64,
		SendWait:        250 * time.Millisecond,
		MaxDrops:        8,
		PollInterval:    100 * time.Millisecond,
		ReadBufferSize:  4096,
		WriteTimeout:    500 * time.Millisecond,
		ReadyTimeout:    15 * time.Second,
		SystemID:        255,
		ComponentID:     0,
	}
}

// DirectPipeline runs serial read loop -> ByteChannel -> PipeBridge -> decoder,
// with commands going back through a CommandSink. Every failure path and
// Stop end in the same teardown, which runs exactly once per Start.
type DirectPipeline struct {
	cfg        DirectConfig
	open       OpenFunc
	newDecoder DecoderFactory
	newEncoder EncoderFactory
	hooks      Hooks
	log        *zap.Logger

	// hookMu orders state changes with their OnState calls
	hookMu sync.Mutex
	mu     sync.Mutex
	state   PipelineState
	res     *directResources
	opening *openAttempt
}

type directResources struct {
	port    Port
	ch      *ByteChannel
	reader  *SerialReader
	pr      *io.PipeReader
	bridge  *PipeBridge
	sink    *CommandSink
	encoder Encoder

	decodeCancel context.CancelFunc
	decodeDone   chan struct{}

	ready     chan struct{}
	readyOnce sync.Once

	trip     chan struct{}
	tripOnce sync.Once
	reason   error

	done chan struct{}
}

// fail records the first reason and wakes the supervisor. A nil reason is a
// requested stop.
func (r *directResources) fail(err error) {
	r.tripOnce.Do(func() {
		r.reason = err
		close(r.trip)
	})
}

func (r *directResources) markReady() {
	r.readyOnce.Do(func() { close(r.ready) })
}

func NewDirectPipeline(cfg DirectConfig, open OpenFunc, dec DecoderFactory, enc EncoderFactory, hooks Hooks, log *zap.Logger) *DirectPipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if dec == nil {
		dec = MAVLinkDecoder
	}
	if enc == nil {
		enc = MAVLinkEncoder(2)
	}
	return &DirectPipeline{
		cfg:        cfg,
		open:       open,
		newDecoder: dec,
		newEncoder: enc,
		hooks:      hooks,
		log:        log.With(zap.String("pipeline", "direct")),
	}
}

// State returns the current lifecycle state
func (p *DirectPipeline) State() PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// transition moves to s, optionally only from one of the given states, and
// reports whether it happened
func (p *DirectPipeline) transition(s PipelineState, from ...PipelineState) bool {
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

// begin moves Idle -> Opening and registers the attempt Stop can abort
func (p *DirectPipeline) begin(a *openAttempt) bool {
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

// abandon returns an attempt that produced no resources to Idle
func (p *DirectPipeline) abandon(a *openAttempt) {
	p.mu.Lock()
	p.opening = nil
	p.mu.Unlock()
	p.transition(StateIdle)
	close(a.done)
}

// Start opens device and blocks until the first frame is decoded (Running)
// or the pipeline has torn itself down again. Cancelling ctx or calling Stop
// at any point stops the pipeline.
func (p *DirectPipeline) Start(ctx context.Context, device string) error {
	attempt := newOpenAttempt()
	if !p.begin(attempt) {
		return ErrAlreadyRunning
	}

	log := p.log.With(zap.String("device", device))

	port, err := awaitOpen(ctx, attempt,
		func() (Port, error) { return p.open(device) },
		func(late Port) { late.Close() })
	if err != nil {
		p.abandon(attempt)
		if errors.Is(err, ErrStopped) || errors.Is(err, context.Canceled) {
			log.Info("direct link stopped while opening")
			return err
		}
		return fmt.Errorf("open %s: %w", device, err)
	}

	// tasks get their own cancellation so teardown can stop them in order
	base := context.WithoutCancel(ctx)

	pr, pw := io.Pipe()
	res := &directResources{
		port:       port,
		ch:         NewByteChannel(p.cfg.ChannelCapacity),
		pr:         pr,
		sink:       NewCommandSink(port, p.cfg.WriteTimeout),
		decodeDone: make(chan struct{}),
		ready:      make(chan struct{}),
		trip:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	res.encoder = p.newEncoder(res.sink)

	// Stop checks res and opening under p.mu, so this handover cannot miss it
	p.mu.Lock()
	if attempt.aborted() {
		p.mu.Unlock()
		port.Close()
		p.abandon(attempt)
		log.Info("direct link stopped while opening")
		return ErrStopped
	}
	p.res = res
	p.opening = nil
	p.mu.Unlock()
	close(attempt.done)

	var decodeCtx context.Context
	decodeCtx, res.decodeCancel = context.WithCancel(base)
	go p.decodeLoop(decodeCtx, res, log)

	res.bridge = StartPipeBridge(base, res.ch, pw, func(err error) {
		res.fail(fmt.Errorf("pipe write: %w", err))
	})

	adapter := NewReaderAdapter(res.ch, p.cfg.SendWait, p.cfg.MaxDrops, func(err error) {
		res.fail(fmt.Errorf("serial read: %w", err))
	}, log)
	res.reader = StartSerialReader(base, port, adapter, p.cfg.PollInterval, p.cfg.ReadBufferSize)

	go p.supervise(ctx, res, log)

	log.Info("direct link opening")

	select {
	case <-res.ready:
		return nil
	case <-res.done:
		select {
		case <-res.ready:
			return nil
		default:
		}
		if res.reason == nil {
			return ErrStopped
		}
		return res.reason
	}
}

func (p *DirectPipeline) decodeLoop(ctx context.Context, res *directResources, log *zap.Logger) {
	defer close(res.decodeDone)

	dec := p.newDecoder(res.pr)
	first := true
	for {
		f, err := dec.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				res.fail(ErrStreamEnded)
			} else {
				res.fail(fmt.Errorf("decode: %w", err))
			}
			return
		}

		if first {
			first = false
			// Running must be visible before Start returns
			if p.transition(StateRunning, StateOpening) {
				log.Info("direct link running",
					zap.Uint8("system_id", f.SystemID),
					zap.Uint8("component_id", f.ComponentID))
			}
			res.markReady()
		}
		p.hooks.frame(f)
	}
}

// supervise waits for the first trip, caller cancellation or the ready
// deadline, then tears down.
func (p *DirectPipeline) supervise(ctx context.Context, res *directResources, log *zap.Logger) {
	var readyTimeout <-chan time.Time
	if p.cfg.ReadyTimeout > 0 {
		t := time.NewTimer(p.cfg.ReadyTimeout)
		defer t.Stop()
		readyTimeout = t.C
	}
	ready := res.ready
	cancelled := ctx.Done()

	for waiting := true; waiting; {
		select {
		case <-res.trip:
			waiting = false
		case <-cancelled:
			cancelled = nil
			res.fail(ctx.Err())
		case <-ready:
			ready = nil
			readyTimeout = nil
		case <-readyTimeout:
			res.fail(ErrNotReady)
		}
	}

	p.teardown(res, log)
}

func (p *DirectPipeline) teardown(res *directResources, log *zap.Logger) {
	p.transition(StateClosing)
	if res.reason != nil {
		log.Warn("direct link failed, tearing down", zap.Error(res.reason))
	} else {
		log.Info("direct link stopping")
	}

	res.decodeCancel()
	res.pr.CloseWithError(errStopping)
	<-res.decodeDone

	res.ch.Close()
	res.bridge.Stop()

	res.reader.Stop()
	res.sink.Close()

	if err := res.port.Close(); err != nil && !errors.Is(err, serial.ErrPortClosed) {
		log.Warn("port close failed", zap.Error(err))
	}

	p.hooks.reset()

	p.transition(StateIdle)

	select {
	case <-res.ready:
		p.hooks.exit(res.reason)
	default:
	}

	log.Info("direct link closed")
	close(res.done)
}

// Stop tears the pipeline down and waits for it. It is a no-op when idle and
// safe to call concurrently. A Start still opening the device is aborted and
// returns ErrStopped.
func (p *DirectPipeline) Stop() error {
	p.mu.Lock()
	res, attempt := p.res, p.opening
	if res == nil && attempt != nil {
		attempt.cancel()
	}
	p.mu.Unlock()

	switch {
	case res != nil:
		res.fail(nil)
		<-res.done
	case attempt != nil:
		<-attempt.done
	}
	return nil
}

// Send encodes msg onto the command sink. Failures are returned to the
// caller only; they never tear the link down.
func (p *DirectPipeline) Send(msg mavlink.Message) error {
	p.mu.Lock()
	res, state := p.res, p.state
	p.mu.Unlock()

	if res == nil || state != StateRunning {
		return ErrNotRunning
	}
	return res.encoder.Send(p.cfg.SystemID, p.cfg.ComponentID, msg)
}
