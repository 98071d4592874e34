package fetcher

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultPermits is the permit count used when a non-positive size is requested.
const DefaultPermits = 5

// Limiter is a counting permit pool bounding simultaneous outbound requests.
type Limiter struct {
	sem  *semaphore.Weighted
	size int
}

// NewLimiter creates a pool of n permits.
func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = DefaultPermits
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n)), size: n}
}

// Size is the number of permits.
func (l *Limiter) Size() int {
	return l.size
}

// Acquire blocks until a permit is free or ctx ends.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// Release returns a permit.
func (l *Limiter) Release() {
	l.sem.Release(1)
}

// Do runs fn while holding a permit. The permit is released however fn returns.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context)) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()

	fn(ctx)

	return nil
}
