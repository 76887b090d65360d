package link

import (
	"context"
	"sync"
)

// ByteChannel is a bounded FIFO of byte chunks with many producers and one
// consumer. The underlying chan is never closed, so a Send racing Close can
// not panic; done carries the close signal instead.
type ByteChannel struct {
	ch        chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewByteChannel(capacity int) *ByteChannel {
	if capacity < 1 {
		capacity = 1
	}
	return &ByteChannel{
		ch:   make(chan []byte, capacity),
		done: make(chan struct{}),
	}
}

// Send enqueues chunk, blocking while the channel is full. Ownership of chunk
// passes to the receiver.
func (c *ByteChannel) Send(ctx context.Context, chunk []byte) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}

	select {
	case c.ch <- chunk:
		return nil
	case <-c.done:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend enqueues chunk only if there is room right now
func (c *ByteChannel) TrySend(chunk []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.ch <- chunk:
		return true
	default:
		return false
	}
}

// Receive returns the next chunk. Chunks queued before Close are still
// delivered; after that ok is false.
func (c *ByteChannel) Receive(ctx context.Context) (chunk []byte, ok bool) {
	select {
	case chunk = <-c.ch:
		return chunk, true
	case <-c.done:
		select {
		case chunk = <-c.ch:
			return chunk, true
		default:
			return nil, false
		}
	case <-ctx.Done():
		return nil, false
	}
}

// Close is idempotent
func (c *ByteChannel) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Closed returns a channel that is closed once Close has been called
func (c *ByteChannel) Closed() <-chan struct{} {
	return c.done
}
