package limits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/saturn/pkg/limits/ratelimit"
)

const tracerName = "mercator-hq/saturn/pkg/limits"

// GateConfig configures a single Gate.
type GateConfig struct {
	// Service is the upstream service name.
	Service string

	// RPM is the requests-per-minute limit. Zero means unlimited.
	RPM int

	// TPM is the tokens-per-minute limit. Zero means unlimited.
	TPM int

	// Concurrency is the number of simultaneous admissions. Values below
	// one are raised to one.
	Concurrency int

	// AdmissionTimeout bounds the whole admission wait. Zero means the
	// caller's context is the only bound.
	AdmissionTimeout time.Duration

	// Window overrides the sliding window. Zero means one minute.
	Window time.Duration
}

type options struct {
	logger       *slog.Logger
	observer     Observer
	waitObserver ratelimit.WaitObserver
	tracer       trace.Tracer
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver registers admission and limiter wait observers. If o also
// implements ratelimit.WaitObserver it receives limiter waits.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		opts.observer = o
		if w, ok := o.(ratelimit.WaitObserver); ok {
			opts.waitObserver = w
		}
	}
}

// WithTracer overrides the tracer used for admission spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Gate admits calls to one upstream service.
//
// # Thread Safety
//
// Gate is safe for concurrent use.
type Gate struct {
	cfg      GateConfig
	slots    *ratelimit.ConcurrentLimiter
	limiter  *ratelimit.SlidingWindowLimiter
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer
}

// NewGate creates a gate from cfg.
func NewGate(cfg GateConfig, opts ...Option) *Gate {
	o := buildOptions(opts)
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	limiterOpts := []ratelimit.Option{ratelimit.WithLogger(o.logger)}
	if cfg.Window > 0 {
		limiterOpts = append(limiterOpts, ratelimit.WithWindow(cfg.Window))
	}
	if o.waitObserver != nil {
		limiterOpts = append(limiterOpts, ratelimit.WithWaitObserver(o.waitObserver))
	}

	return &Gate{
		cfg:      cfg,
		slots:    ratelimit.NewConcurrentLimiter(cfg.Concurrency),
		limiter:  ratelimit.NewSlidingWindowLimiter(cfg.Service, cfg.RPM, cfg.TPM, limiterOpts...),
		logger:   o.logger.With("component", "limits.gate", "service", cfg.Service),
		observer: o.observer,
		tracer:   o.tracer,
	}
}

// Admission is a granted admission. Release must be called once the
// upstream call completes; calling it more than once is safe.
type Admission struct {
	gate *Gate
	once sync.Once
}

// Release returns the concurrency slot.
func (a *Admission) Release() {
	a.once.Do(func() {
		a.gate.slots.Release()
		if a.gate.observer != nil {
			a.gate.observer.ObserveInFlight(a.gate.cfg.Service, a.gate.slots.Current())
		}
	})
}

// Admit waits for a concurrency slot, then for rate-limit capacity for
// estimatedTokens. On any error no slot is held.
//
// If the gate's AdmissionTimeout elapses first the error matches both
// ErrAdmissionTimeout and context.DeadlineExceeded.
func (g *Gate) Admit(ctx context.Context, estimatedTokens int) (*Admission, error) {
	ctx, span := g.tracer.Start(ctx, "limits.admit",
		trace.WithAttributes(
			attribute.String("saturn.service", g.cfg.Service),
			attribute.Int("saturn.estimated_tokens", estimatedTokens),
		),
	)
	defer span.End()

	waitCtx := ctx
	if g.cfg.AdmissionTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, g.cfg.AdmissionTimeout)
		defer cancel()
	}

	start := time.Now()

	if err := g.slots.Acquire(waitCtx); err != nil {
		return nil, g.fail(ctx, span, start, "concurrency", err)
	}

	if err := g.limiter.Acquire(waitCtx, estimatedTokens); err != nil {
		g.slots.Release()
		return nil, g.fail(ctx, span, start, "rate_limit", err)
	}

	wait := time.Since(start)
	inFlight := g.slots.Current()
	if g.observer != nil {
		g.observer.ObserveAdmission(g.cfg.Service, wait, nil)
		g.observer.ObserveInFlight(g.cfg.Service, inFlight)
	}
	span.SetAttributes(attribute.Int64("saturn.admission_wait_ms", wait.Milliseconds()))

	return &Admission{gate: g}, nil
}

// Do admits, runs fn, and releases, regardless of how fn returns. fn's
// error is returned unchanged.
func (g *Gate) Do(ctx context.Context, estimatedTokens int, fn func(ctx context.Context) error) error {
	adm, err := g.Admit(ctx, estimatedTokens)
	if err != nil {
		return err
	}
	defer adm.Release()

	return fn(ctx)
}

// fail records a failed admission and maps a gate timeout to
// ErrAdmissionTimeout.
func (g *Gate) fail(ctx context.Context, span trace.Span, start time.Time, stage string, err error) error {
	wait := time.Since(start)

	if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: service %s, stage %s, after %s: %w",
			ErrAdmissionTimeout, g.cfg.Service, stage, g.cfg.AdmissionTimeout, err)
		g.logger.Warn("admission timed out",
			"stage", stage,
			"wait", wait,
			"timeout", g.cfg.AdmissionTimeout,
		)
	}

	if g.observer != nil {
		g.observer.ObserveAdmission(g.cfg.Service, wait, err)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
	return err
}

// Status returns a snapshot of the gate's limiter and slot usage.
func (g *Gate) Status() GateStatus {
	ls := g.limiter.Status()
	return GateStatus{
		Service:    g.cfg.Service,
		RPM:        ls.RPM,
		TPM:        ls.TPM,
		Concurrent: ratelimit.NewUsage(g.slots.Current(), g.slots.Limit()),
	}
}

// Config returns the gate's configuration.
func (g *Gate) Config() GateConfig {
	return g.cfg
}

// Key returns the gate's registry key.
func (g *Gate) Key() GateKey {
	return GateKey{
		Service:     g.cfg.Service,
		RPM:         g.cfg.RPM,
		TPM:         g.cfg.TPM,
		Concurrency: g.cfg.Concurrency,
	}
}
