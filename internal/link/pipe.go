package link

import (
	"context"
	"io"
	"sync"
)

// PipeBridge drains a ByteChannel into the write end of an io.Pipe so a
// blocking decoder can read it as a plain stream.
type PipeBridge struct {
	w         *io.PipeWriter
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// StartPipeBridge runs until the channel ends, a write fails, or ctx is
// cancelled. onFailure sees write errors that happen while not cancelled.
func StartPipeBridge(ctx context.Context, ch *ByteChannel, w *io.PipeWriter, onFailure func(error)) *PipeBridge {
	ctx, cancel := context.WithCancel(ctx)
	b := &PipeBridge{w: w, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(b.done)
		defer b.closeWriter()

		for {
			chunk, ok := ch.Receive(ctx)
			if !ok {
				return
			}
			if _, err := w.Write(chunk); err != nil {
				if ctx.Err() == nil && onFailure != nil {
					onFailure(err)
				}
				return
			}
		}
	}()

	return b
}

func (b *PipeBridge) closeWriter() {
	b.closeOnce.Do(func() { b.w.Close() })
}

// Stop cancels the bridge, unblocks a pending pipe write and waits for exit
func (b *PipeBridge) Stop() {
	b.cancel()
	b.closeWriter()
	<-b.done
}

// Done is closed when the bridge goroutine has exited
func (b *PipeBridge) Done() <-chan struct{} {
	return b.done
}
