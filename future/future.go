// Package future provides a single-assignment result for work that completes
// on another goroutine.
package future

import (
	"context"
	"sync"
)

// Future holds the eventual result of an asynchronous operation.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

// New returns an unresolved future and the function that resolves it. Only the
// first call to resolve has any effect.
func New[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.resolve
}

// Resolved returns a future that is already complete.
func Resolved[T any](v T, err error) *Future[T] {
	f, resolve := New[T]()
	resolve(v, err)
	return f
}

func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		f.val = v
		f.err = err
		close(f.done)
	})
}

// Done returns a channel that is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the result is available without blocking.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the result is available or ctx is canceled. Canceling ctx
// abandons the wait, not the underlying operation.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the result if it is available. ok is false while the
// operation is still running.
func (f *Future[T]) Result() (v T, ok bool, err error) {
	if !f.Ready() {
		return v, false, nil
	}
	return f.val, true, f.err
}

// Get blocks until the result is available.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.val, f.err
}

// Then returns a future that resolves to fn applied to the result of f. Errors
// from f are passed through without calling fn.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	out, resolve := New[U]()

	go func() {
		v, err := f.Get()
		if err != nil {
			var zero U
			resolve(zero, err)
			return
		}
		resolve(fn(v))
	}()

	return out
}

// Go runs fn on a new goroutine, bounded by l, and returns its future. The
// caller is never blocked; waiting for a free slot happens on the new
// goroutine. A nil limiter imposes no bound.
func Go[T any](ctx context.Context, l *Limiter, fn func(context.Context) (T, error)) *Future[T] {
	f, resolve := New[T]()

	go func() {
		if err := l.Acquire(ctx); err != nil {
			var zero T
			resolve(zero, err)
			return
		}
		defer l.Release()

		resolve(fn(ctx))
	}()

	return f
}
