// Package observe holds a single value that UI code can watch.
package observe

import "sync"

type subscriber[T any] struct {
	ch chan T
}

// Value is a mutex-guarded value with latest-wins subscribers. A slow
// subscriber never blocks Store; it just sees the most recent value when it
// next reads.
type Value[T any] struct {
	mu   sync.Mutex
	v    T
	subs map[*subscriber[T]]struct{}
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial, subs: make(map[*subscriber[T]]struct{})}
}

// Load returns the current value
func (o *Value[T]) Load() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.v
}

// Store replaces the value and notifies subscribers
func (o *Value[T]) Store(v T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.v = v
	o.notify(v)
}

// Update applies fn to the current value under the lock and stores the
// result. It is the read-modify-write form of Store.
func (o *Value[T]) Update(fn func(T) T) T {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.v = fn(o.v)
	o.notify(o.v)
	return o.v
}

// Subscribe returns a channel primed with the current value and a cancel
// func that closes it.
func (o *Value[T]) Subscribe() (<-chan T, func()) {
	s := &subscriber[T]{ch: make(chan T, 1)}

	o.mu.Lock()
	s.ch <- o.v
	o.subs[s] = struct{}{}
	o.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, s)
			o.mu.Unlock()
			close(s.ch)
		})
	}
	return s.ch, cancel
}

// notify must be called with o.mu held
func (o *Value[T]) notify(v T) {
	for s := range o.subs {
		select {
		case s.ch <- v:
			continue
		default:
		}
		// drop the stale value so the newest one fits
		select {
		case <-s.ch:
		default:
		}
		s.ch <- v
	}
}
