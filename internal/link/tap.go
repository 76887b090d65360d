package link

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/allbin/groundlink/internal/mavlink"
)

// DecodeTap decodes a copy of the proxied byte stream so telemetry stays
// visible while an external server owns the link. It never slows the
// forwarder: chunks that do not fit are dropped.
type DecodeTap struct {
	ch      *ByteChannel
	pr      *io.PipeReader
	bridge  *PipeBridge
	cancel  context.CancelFunc
	done    chan struct{}
	dropped atomic.Int64
	once    sync.Once
}

func StartDecodeTap(capacity int, newDecoder DecoderFactory, onFrame func(*mavlink.Frame), log *zap.Logger) *DecodeTap {
	ctx, cancel := context.WithCancel(context.Background())
	pr, pw := io.Pipe()
	t := &DecodeTap{
		ch:     NewByteChannel(capacity),
		pr:     pr,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	t.bridge = StartPipeBridge(ctx, t.ch, pw, nil)

	go func() {
		defer close(t.done)
		dec := newDecoder(pr)
		for {
			f, err := dec.Next()
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, io.EOF) {
					log.Warn("telemetry tap stopped", zap.Error(err))
				}
				return
			}
			if onFrame != nil {
				onFrame(f)
			}
		}
	}()

	return t
}

// Offer hands a chunk to the tap without blocking
func (t *DecodeTap) Offer(chunk []byte) {
	if !t.ch.TrySend(chunk) {
		t.dropped.Add(1)
	}
}

// Dropped returns how many chunks did not fit
func (t *DecodeTap) Dropped() int64 {
	return t.dropped.Load()
}

// Close stops decoding and waits for both goroutines
func (t *DecodeTap) Close() {
	t.once.Do(func() {
		t.cancel()
		t.pr.CloseWithError(errStopping)
		<-t.done
		t.ch.Close()
		t.bridge.Stop()
	})
}
