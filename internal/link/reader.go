package link

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Listener receives what the serial read loop produces
type Listener interface {
	OnData(chunk []byte)
	OnError(err error)
}

// ReaderAdapter forwards read chunks into a ByteChannel and turns the first
// read error into a fatal callback. A chunk that cannot be queued within the
// wait is dropped; maxDrops drops in a row are fatal (ErrOverflow).
type ReaderAdapter struct {
	ch       *ByteChannel
	wait     time.Duration
	maxDrops int
	onFatal  func(error)
	log      *zap.Logger

	once    sync.Once
	dropped atomic.Int64
	streak  atomic.Int64
}

// NewReaderAdapter returns an adapter feeding ch. maxDrops <= 0 never fails
// the link on overflow.
func NewReaderAdapter(ch *ByteChannel, wait time.Duration, maxDrops int, onFatal func(error), log *zap.Logger) *ReaderAdapter {
	return &ReaderAdapter{ch: ch, wait: wait, maxDrops: maxDrops, onFatal: onFatal, log: log}
}

// OnData blocks for at most the configured wait
func (a *ReaderAdapter) OnData(chunk []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), a.wait)
	defer cancel()

	err := a.ch.Send(ctx, chunk)
	switch {
	case err == nil:
		a.streak.Store(0)
	case errors.Is(err, ErrChannelClosed):
		a.log.Debug("dropping chunk after channel close", zap.Int("bytes", len(chunk)))
	default:
		n := a.dropped.Add(1)
		streak := a.streak.Add(1)
		a.log.Warn("channel full, dropping chunk",
			zap.Int("bytes", len(chunk)),
			zap.Int64("dropped_total", n))
		// the decoder now sees a gap; past the limit it is not catching up
		if a.maxDrops > 0 && streak >= int64(a.maxDrops) {
			a.OnError(fmt.Errorf("%w: %d chunks dropped in a row", ErrOverflow, streak))
		}
	}
}

// OnError reports err to the fatal callback once; later errors are ignored
func (a *ReaderAdapter) OnError(err error) {
	a.once.Do(func() {
		if a.onFatal != nil {
			a.onFatal(err)
		}
	})
}

// Dropped returns how many chunks were discarded because the channel stayed full
func (a *ReaderAdapter) Dropped() int64 {
	return a.dropped.Load()
}

// SerialReader is the driver read loop. It polls the port with a short
// timeout so cancellation is observed between reads.
type SerialReader struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// StartSerialReader launches the loop. Chunks are fresh slices owned by the
// listener.
func StartSerialReader(ctx context.Context, port Port, l Listener, poll time.Duration, bufSize int) *SerialReader {
	ctx, cancel := context.WithCancel(ctx)
	r := &SerialReader{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(r.done)
		buf := make([]byte, bufSize)
		for {
			if ctx.Err() != nil {
				return
			}
			n, err := port.ReadTimeout(buf, poll)
			if err != nil {
				if ctx.Err() == nil {
					l.OnError(err)
				}
				return
			}
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				l.OnData(chunk)
			}
		}
	}()

	return r
}

// Stop cancels the loop and waits for it to exit
func (r *SerialReader) Stop() {
	r.stopOnce.Do(r.cancel)
	<-r.done
}

// Done is closed when the loop has exited
func (r *SerialReader) Done() <-chan struct{} {
	return r.done
}
