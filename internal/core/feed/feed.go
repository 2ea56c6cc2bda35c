// Package feed provides a current-value stream: observers get the latest
// value when they subscribe and every later value in publish order.
package feed

import (
	"context"
	"sync"
)

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Feed holds the latest published value and an ordered set of observers.
//
// Observers run synchronously inside Publish and Subscribe and must not call
// back into the same Feed.
type Feed[T any] struct {
	mu     sync.Mutex
	latest T
	subs   []subscriber[T]
	nextID uint64
	copyFn func(T) T
}

type Option[T any] func(*Feed[T])

// WithCopy makes the feed hand every reader its own copy of a value, so no
// reader can modify what another reader or the publisher sees.
func WithCopy[T any](fn func(T) T) Option[T] {
	return func(f *Feed[T]) { f.copyFn = fn }
}

func New[T any](initial T, opts ...Option[T]) *Feed[T] {
	f := &Feed[T]{latest: initial}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Feed[T]) Value() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out(f.latest)
}

func (f *Feed[T]) out(v T) T {
	if f.copyFn == nil {
		return v
	}
	return f.copyFn(v)
}

// Subscribe replays the current value to fn and registers it for future
// values. The returned func unregisters fn; it is safe to call twice.
func (f *Feed[T]) Subscribe(fn func(T)) (cancel func()) {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.subs = append(f.subs, subscriber[T]{id: id, fn: fn})
	fn(f.out(f.latest))
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { f.unsubscribe(id) })
	}
}

func (f *Feed[T]) unsubscribe(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.subs {
		if s.id == id {
			f.subs = append(f.subs[:i:i], f.subs[i+1:]...)
			return
		}
	}
}

// Publish stores v as the latest value and delivers it to every observer in
// subscription order.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = v
	for _, s := range f.subs {
		s.fn(f.out(v))
	}
}

// Subscribers reports the number of registered observers.
func (f *Feed[T]) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Map derives a feed whose value is fn applied to every value of src.
func Map[T, U any](src *Feed[T], fn func(T) U) *Feed[U] {
	var out *Feed[U]
	src.Subscribe(func(v T) {
		if out == nil {
			out = New(fn(v))
			return
		}
		out.Publish(fn(v))
	})
	return out
}

// Watch delivers values on a channel until ctx is done. The channel holds at
// most one pending value: a slow reader skips intermediate values and always
// receives the newest one.
func (f *Feed[T]) Watch(ctx context.Context) <-chan T {
	out := make(chan T)
	pending := make(chan T, 1)

	cancel := f.Subscribe(func(v T) {
		select {
		case <-pending:
		default:
		}
		pending <- v
	})

	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case v := <-pending:
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
