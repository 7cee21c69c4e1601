package ratelimit

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ConcurrentLimiter limits the number of simultaneous in-flight calls.
//
// Unlike a try-only counter, Acquire blocks until a slot frees up or the
// context is done. Slots are handed out in FIFO order by the underlying
// weighted semaphore.
//
// # Thread Safety
//
// ConcurrentLimiter is safe for concurrent use.
type ConcurrentLimiter struct {
	limit   int64
	current atomic.Int64
	sem     *semaphore.Weighted
}

// NewConcurrentLimiter creates a limiter with the given number of slots.
// A limit below one is raised to one.
func NewConcurrentLimiter(limit int) *ConcurrentLimiter {
	if limit < 1 {
		limit = 1
	}
	return &ConcurrentLimiter{
		limit: int64(limit),
		sem:   semaphore.NewWeighted(int64(limit)),
	}
}

// Acquire blocks until a slot is available or ctx is done.
//
// On success the caller MUST call Release exactly once.
func (cl *ConcurrentLimiter) Acquire(ctx context.Context) error {
	if err := cl.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	cl.current.Add(1)
	return nil
}

// TryAcquire takes a slot without blocking. Returns false if none is free.
func (cl *ConcurrentLimiter) TryAcquire() bool {
	if !cl.sem.TryAcquire(1) {
		return false
	}
	cl.current.Add(1)
	return true
}

// Release returns a slot taken by Acquire or TryAcquire.
func (cl *ConcurrentLimiter) Release() {
	cl.current.Add(-1)
	cl.sem.Release(1)
}

// Current returns the number of slots in use.
func (cl *ConcurrentLimiter) Current() int64 {
	return cl.current.Load()
}

// Limit returns the configured number of slots.
func (cl *ConcurrentLimiter) Limit() int64 {
	return cl.limit
}

// Remaining returns the number of free slots.
func (cl *ConcurrentLimiter) Remaining() int64 {
	remaining := cl.limit - cl.current.Load()
	if remaining < 0 {
		return 0
	}
	return remaining
}
