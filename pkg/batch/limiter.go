package batch

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of batch executions in flight. It is a thin
// wrapper over a weighted semaphore, which admits waiters in FIFO order,
// so no goroutine can be starved while slots recycle.
type Limiter struct {
	sem *semaphore.Weighted
	max int
}

// NewLimiter creates a limiter admitting at most max concurrent holders.
func NewLimiter(max int) (*Limiter, error) {
	if max < 1 {
		return nil, errors.Errorf("batch: limiter capacity must be at least 1, got %d", max)
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(max)), max: max}, nil
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// Release frees one slot. It must pair with a successful Acquire.
func (l *Limiter) Release() {
	l.sem.Release(1)
}

// Cap returns the configured concurrency bound.
func (l *Limiter) Cap() int {
	return l.max
}
