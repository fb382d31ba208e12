package future

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of asynchronous operations running at once.
type Limiter struct {
	n   int
	sem *semaphore.Weighted
}

// NewLimiter returns a limiter that allows n operations to run concurrently.
// If n is zero or negative there is no limit.
func NewLimiter(n int) *Limiter {
	if n <= 0 {
		return &Limiter{}
	}

	return &Limiter{
		n,
		semaphore.NewWeighted(int64(n)),
	}
}

// Limit returns the number of operations that can run concurrently.
//
// It returns 0 if there is no limit.
func (l *Limiter) Limit() int {
	if l == nil || l.sem == nil {
		return 0
	}

	return l.n
}

// Acquire blocks until it is ok for the caller to start an operation, or until
// ctx is canceled.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil || l.sem == nil {
		return ctx.Err()
	}

	return l.sem.Acquire(ctx, 1)
}

// Release signals that an operation has completed.
func (l *Limiter) Release() {
	if l != nil && l.sem != nil {
		l.sem.Release(1)
	}
}
