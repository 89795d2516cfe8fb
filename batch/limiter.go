package batch

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent is the slot count used when none is configured.
const DefaultMaxConcurrent = 5

// Limiter caps the number of jobs executing at once. Waiters are served in
// FIFO order, so no holder starves under finite contention.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int

	inFlight atomic.Int64
	peak     atomic.Int64
}

// NewLimiter creates a limiter with capacity slots. capacity <= 0 falls back
// to DefaultMaxConcurrent.
func NewLimiter(capacity int) *Limiter {
	if capacity <= 0 {
		capacity = DefaultMaxConcurrent
	}
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Acquire blocks until a slot is free or ctx is done. Every successful
// Acquire must be paired with exactly one Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	n := l.inFlight.Add(1)
	for {
		p := l.peak.Load()
		if n <= p || l.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return nil
}

// Release returns a slot.
func (l *Limiter) Release() {
	l.inFlight.Add(-1)
	l.sem.Release(1)
}

// Capacity returns the configured slot count.
func (l *Limiter) Capacity() int { return l.capacity }

// InFlight returns the number of slots currently held.
func (l *Limiter) InFlight() int { return int(l.inFlight.Load()) }

// Peak returns the highest number of slots held at once.
func (l *Limiter) Peak() int { return int(l.peak.Load()) }
