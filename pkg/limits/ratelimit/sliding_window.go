package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultWindow is the rolling window over which RPM and TPM are enforced.
const DefaultWindow = time.Minute

// SlidingWindowLimiter gates calls to one named upstream service so that,
// over any trailing window, the number of granted calls stays within the
// requests-per-minute limit and their summed token estimates stay within the
// tokens-per-minute limit.
//
// # Algorithm
//
// Two time-ordered queues are kept: one timestamp per granted request and
// one (timestamp, tokens) sample per granted request with a non-zero token
// estimate. Each Acquire attempt:
//
//  1. Prunes samples that have aged out of the window
//  2. Computes the RPM wait (time until the oldest request ages out, if at capacity)
//  3. Computes the TPM wait (time until the oldest token sample ages out, if the
//     new estimate would exceed the limit)
//  4. If both waits are zero, records the samples and returns
//  5. Otherwise sleeps for the larger wait and retries from step 1
//
// The lock is held only while inspecting and mutating the queues, never while
// sleeping, so callers woken at the same time re-validate against each other.
//
// An estimate larger than the TPM limit itself is granted once the token queue
// is empty, so an oversized request can never deadlock.
//
// # Thread Safety
//
// SlidingWindowLimiter is safe for concurrent use.
type SlidingWindowLimiter struct {
	service  string
	rpmLimit int
	tpmLimit int
	window   time.Duration
	now      func() time.Time
	logger   *slog.Logger
	observer WaitObserver

	mu       sync.Mutex
	requests []time.Time
	tokens   []tokenSample
	tokenSum int64
}

// tokenSample is one granted request's token estimate.
type tokenSample struct {
	at     time.Time
	tokens int
}

// WaitObserver receives notifications when Acquire has to wait.
// Reason is "rpm" or "tpm".
type WaitObserver interface {
	ObserveLimiterWait(service, reason string, wait time.Duration)
}

// Option configures a SlidingWindowLimiter.
type Option func(*SlidingWindowLimiter)

// WithWindow overrides the rolling window duration. Intended for tests.
func WithWindow(window time.Duration) Option {
	return func(l *SlidingWindowLimiter) {
		if window > 0 {
			l.window = window
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *SlidingWindowLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the logger used for wait notifications.
func WithLogger(logger *slog.Logger) Option {
	return func(l *SlidingWindowLimiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithWaitObserver registers an observer for limiter waits.
func WithWaitObserver(o WaitObserver) Option {
	return func(l *SlidingWindowLimiter) {
		l.observer = o
	}
}

// NewSlidingWindowLimiter creates a limiter for the named service.
//
// A limit of zero or less disables that dimension.
//
// Example:
//
//	limiter := NewSlidingWindowLimiter("llm", 800, 40000)
//	if err := limiter.Acquire(ctx, 1200); err != nil {
//	    return err // context cancelled or deadline exceeded
//	}
func NewSlidingWindowLimiter(service string, rpmLimit, tpmLimit int, opts ...Option) *SlidingWindowLimiter {
	l := &SlidingWindowLimiter{
		service:  service,
		rpmLimit: rpmLimit,
		tpmLimit: tpmLimit,
		window:   DefaultWindow,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "limits.ratelimit", "service", service)
	return l
}

// Acquire blocks until a request with the given token estimate may be made,
// or until ctx is done. Negative estimates are treated as zero.
//
// A granted sample is never retracted: it ages out of the window on its own
// whether or not the caller's upstream call succeeds.
func (l *SlidingWindowLimiter) Acquire(ctx context.Context, estimatedTokens int) error {
	if estimatedTokens < 0 {
		estimatedTokens = 0
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.mu.Lock()
		now := l.now()
		l.pruneLocked(now)
		rpmWait := l.rpmWaitLocked(now)
		tpmWait := l.tpmWaitLocked(now, estimatedTokens)
		if rpmWait == 0 && tpmWait == 0 {
			l.recordLocked(now, estimatedTokens)
			currentRPM, currentTPM := len(l.requests), l.tokenSum
			l.mu.Unlock()

			l.logger.Debug("rate limit acquired",
				"rpm", currentRPM, "rpm_limit", l.rpmLimit,
				"tpm", currentTPM, "tpm_limit", l.tpmLimit,
			)
			return nil
		}
		currentTPM := l.tokenSum
		l.mu.Unlock()

		wait, reason := rpmWait, "rpm"
		if tpmWait > rpmWait {
			wait, reason = tpmWait, "tpm"
		}

		l.logger.Info("rate limit reached, waiting",
			"reason", reason,
			"wait", wait,
			"rpm_limit", l.rpmLimit,
			"tpm", currentTPM,
			"tpm_limit", l.tpmLimit,
			"estimated_tokens", estimatedTokens,
		)
		if l.observer != nil {
			l.observer.ObserveLimiterWait(l.service, reason, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Status returns a snapshot of current window usage.
func (l *SlidingWindowLimiter) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(l.now())

	return Status{
		Service: l.service,
		RPM:     NewUsage(int64(len(l.requests)), int64(l.rpmLimit)),
		TPM:     NewUsage(l.tokenSum, int64(l.tpmLimit)),
	}
}

// Service returns the upstream service name.
func (l *SlidingWindowLimiter) Service() string {
	return l.service
}

// Limits returns the configured RPM and TPM limits.
func (l *SlidingWindowLimiter) Limits() (rpm, tpm int) {
	return l.rpmLimit, l.tpmLimit
}

// Reset clears both queues. Intended for tests.
func (l *SlidingWindowLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.requests = nil
	l.tokens = nil
	l.tokenSum = 0
}

// pruneLocked drops samples whose age has reached the window.
// Caller must hold l.mu.
func (l *SlidingWindowLimiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.window)

	i := 0
	for i < len(l.requests) && !l.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.requests = append(l.requests[:0], l.requests[i:]...)
	}

	j := 0
	for j < len(l.tokens) && !l.tokens[j].at.After(cutoff) {
		l.tokenSum -= int64(l.tokens[j].tokens)
		j++
	}
	if j > 0 {
		l.tokens = append(l.tokens[:0], l.tokens[j:]...)
	}
}

// rpmWaitLocked returns how long until a request slot frees up, or zero.
// Caller must hold l.mu.
func (l *SlidingWindowLimiter) rpmWaitLocked(now time.Time) time.Duration {
	if l.rpmLimit <= 0 || len(l.requests) < l.rpmLimit {
		return 0
	}
	return l.untilExpiry(now, l.requests[0])
}

// tpmWaitLocked returns how long until the oldest token sample ages out if
// adding estimatedTokens would exceed the limit, or zero. An empty token
// queue always grants, which bounds overshoot to a single oversized request.
// Caller must hold l.mu.
func (l *SlidingWindowLimiter) tpmWaitLocked(now time.Time, estimatedTokens int) time.Duration {
	if l.tpmLimit <= 0 || estimatedTokens == 0 || len(l.tokens) == 0 {
		return 0
	}
	if l.tokenSum+int64(estimatedTokens) <= int64(l.tpmLimit) {
		return 0
	}
	return l.untilExpiry(now, l.tokens[0].at)
}

// untilExpiry returns the time left before a sample taken at `at` ages out.
// It never returns zero so a caller at capacity always sleeps before retrying.
func (l *SlidingWindowLimiter) untilExpiry(now, at time.Time) time.Duration {
	wait := at.Add(l.window).Sub(now)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait
}

// recordLocked appends the granted request to the queues.
// Caller must hold l.mu.
func (l *SlidingWindowLimiter) recordLocked(now time.Time, estimatedTokens int) {
	l.requests = append(l.requests, now)
	if estimatedTokens > 0 {
		l.tokens = append(l.tokens, tokenSample{at: now, tokens: estimatedTokens})
		l.tokenSum += int64(estimatedTokens)
	}
}
