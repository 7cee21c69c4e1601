// Package limits admits calls to upstream AI services.
//
// # Overview
//
// A Gate is the single object acquired before, and released after, one
// upstream call. It composes two primitives from package ratelimit:
//
//   - a ConcurrentLimiter sized to the service's concurrency budget
//   - a SlidingWindowLimiter enforcing the service's RPM and TPM
//
// The concurrency slot is always taken first and the rate-limit wait second.
// The reverse order would let an unbounded number of callers queue on the
// window while the slot count no longer reflects who is waiting.
//
// # Architecture
//
// The package is organized as:
//
//   - ratelimit: sliding window and concurrency primitives
//   - budget: concurrency budget calculation and precedence
//   - this package: Gate, Admission, and the memoizing Registry
//
// # Usage
//
//	registry := limits.NewRegistry(limits.RegistryConfig{
//	    Floor:            budget.DefaultFloor,
//	    AdmissionTimeout: 10 * time.Minute,
//	}, limits.WithLogger(logger))
//
//	gate := registry.Gate("llm", limits.ServiceLimits{RPM: 800, TPM: 40000})
//	err := gate.Do(ctx, estimatedTokens, func(ctx context.Context) error {
//	    return callUpstream(ctx)
//	})
//
// # Timeouts
//
// Every admission wait is bounded by the caller's context and, when set,
// by the gate's AdmissionTimeout. A timed-out admission never holds a slot.
// A rate-limit sample, once recorded, is never retracted.
package limits
