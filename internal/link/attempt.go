package link

import (
	"context"
	"sync"
)

// openAttempt is a Start that has not produced resources yet. Stop aborts
// it rather than waiting on a device open that may hang.
type openAttempt struct {
	abort     chan struct{}
	abortOnce sync.Once
	// done is closed once Start has either handed over resources or gone
	// back to Idle
	done chan struct{}
}

func newOpenAttempt() *openAttempt {
	return &openAttempt{
		abort: make(chan struct{}),
		done:  make(chan struct{}),
	}
}

func (a *openAttempt) cancel() {
	a.abortOnce.Do(func() { close(a.abort) })
}

func (a *openAttempt) aborted() bool {
	select {
	case <-a.abort:
		return true
	default:
		return false
	}
}

// awaitOpen runs open off the calling goroutine and returns its result, or
// ErrStopped (ctx.Err() on cancellation) if the attempt ends first. A result
// arriving after that is handed to release.
func awaitOpen[T any](ctx context.Context, a *openAttempt, open func() (T, error), release func(T)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := open()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-a.abort:
	case <-ctx.Done():
	}

	go func() {
		if r := <-ch; r.err == nil {
			release(r.v)
		}
	}()

	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	return zero, ErrStopped
}
