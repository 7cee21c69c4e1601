// Package ratelimit provides the primitives that throttle calls to upstream
// AI services.
//
// # Overview
//
// Two primitives are provided:
//
//   - SlidingWindowLimiter: requests-per-minute and tokens-per-minute limits
//     over a rolling window, blocking callers until capacity frees up
//   - ConcurrentLimiter: a weighted semaphore bounding in-flight calls
//
// Neither primitive knows about tenants or services beyond a display name;
// composition into admission gates lives in package limits.
//
// # Sliding Window
//
// Acquire suspends the caller rather than rejecting it:
//
//	limiter := ratelimit.NewSlidingWindowLimiter("embedding", 1600, 400000)
//	if err := limiter.Acquire(ctx, 512); err != nil {
//	    return err
//	}
//	// call upstream
//
// Samples age out exactly one window after they were granted. A granted
// sample stays in the window even if the upstream call later fails.
//
// # Concurrent Limiter
//
//	slots := ratelimit.NewConcurrentLimiter(8)
//	if err := slots.Acquire(ctx); err != nil {
//	    return err
//	}
//	defer slots.Release()
//
// # Thread Safety
//
// All types in this package are safe for concurrent use.
package ratelimit
