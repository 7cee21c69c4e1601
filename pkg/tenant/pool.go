package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxInstances is used when NewPool is given a non-positive size.
const DefaultMaxInstances = 50

// Builder constructs the handle for one tenant.
type Builder[H any] func(ctx context.Context, tenantID string) (H, error)

// Observer receives pool events. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObservePoolSize(size int)
	ObserveEviction(tenantID, reason string)
	ObserveBuild(duration time.Duration, err error)
}

// Stats is a read-only snapshot of the pool.
type Stats struct {
	Count int `json:"count"`
	Max   int `json:"max"`

	// TenantIDs are in insertion order, oldest first.
	TenantIDs []string `json:"tenant_ids"`
}

// Option configures a Pool.
type Option func(*poolOptions)

type poolOptions struct {
	logger       *slog.Logger
	observer     Observer
	tracer       trace.Tracer
	buildTimeout time.Duration
}

// WithLogger sets the pool logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *poolOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver registers a pool observer.
func WithObserver(obs Observer) Option {
	return func(o *poolOptions) { o.observer = obs }
}

// WithTracer overrides the tracer used for build spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *poolOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithBuildTimeout bounds each handle build. Zero means unbounded.
func WithBuildTimeout(d time.Duration) Option {
	return func(o *poolOptions) { o.buildTimeout = d }
}

// Pool is a bounded map of tenant id to handle.
//
// # Thread Safety
//
// Pool is safe for concurrent use. The lock guards only map bookkeeping and
// is never held while a handle is being built.
type Pool[H any] struct {
	max   int
	build Builder[H]
	opts  poolOptions

	mu      sync.Mutex
	entries map[string]H
	order   []string

	group singleflight.Group
}

// NewPool creates a pool holding at most maxInstances handles.
func NewPool[H any](maxInstances int, build Builder[H], opts ...Option) *Pool[H] {
	if maxInstances <= 0 {
		maxInstances = DefaultMaxInstances
	}
	o := poolOptions{
		logger: slog.Default(),
		tracer: otel.Tracer("mercator-hq/saturn/pkg/tenant"),
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With("component", "tenant.pool")

	return &Pool[H]{
		max:     maxInstances,
		build:   build,
		opts:    o,
		entries: make(map[string]H, maxInstances),
	}
}

// GetOrCreate returns the tenant's handle, building it if it is not
// resident. The id is validated first; see ValidateID.
//
// Concurrent calls for the same cold tenant share one build. The build runs
// detached from the callers' cancellation, bounded by WithBuildTimeout.
func (p *Pool[H]) GetOrCreate(ctx context.Context, tenantID string) (H, error) {
	var zero H
	if err := ValidateID(tenantID); err != nil {
		return zero, err
	}

	if h, ok := p.Get(tenantID); ok {
		return h, nil
	}

	ch := p.group.DoChan(tenantID, func() (any, error) {
		return p.buildAndInsert(context.WithoutCancel(ctx), tenantID)
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(H), nil
	}
}

// Get returns the resident handle for tenantID without building.
func (p *Pool[H]) Get(tenantID string) (H, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.entries[tenantID]
	return h, ok
}

func (p *Pool[H]) buildAndInsert(ctx context.Context, tenantID string) (H, error) {
	// A build for this key may have completed between Get and DoChan.
	if h, ok := p.Get(tenantID); ok {
		return h, nil
	}

	if p.opts.buildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.buildTimeout)
		defer cancel()
	}

	ctx, span := p.opts.tracer.Start(ctx, "tenant.build",
		trace.WithAttributes(attribute.String("saturn.tenant_id", tenantID)))
	defer span.End()

	p.opts.logger.Info("building tenant instance", "tenant_id", tenantID)

	start := time.Now()
	h, err := p.build(ctx, tenantID)
	duration := time.Since(start)
	if p.opts.observer != nil {
		p.opts.observer.ObserveBuild(duration, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		p.opts.logger.Error("failed to build tenant instance",
			"tenant_id", tenantID,
			"duration", duration,
			"error", err,
		)
		var zero H
		return zero, fmt.Errorf("build instance for tenant %s: %w", tenantID, err)
	}

	p.insert(tenantID, h)

	p.opts.logger.Info("tenant instance ready",
		"tenant_id", tenantID,
		"duration", duration,
	)
	return h, nil
}

// insert adds h, evicting the oldest entry first if the pool is full.
func (p *Pool[H]) insert(tenantID string, h H) {
	p.mu.Lock()

	var evicted string
	if _, exists := p.entries[tenantID]; !exists {
		if len(p.entries) >= p.max && len(p.order) > 0 {
			evicted = p.order[0]
			p.order = p.order[1:]
			delete(p.entries, evicted)
		}
		p.order = append(p.order, tenantID)
	}
	p.entries[tenantID] = h
	size := len(p.entries)

	p.mu.Unlock()

	if evicted != "" {
		p.opts.logger.Info("evicted tenant instance",
			"tenant_id", evicted,
			"reason", "capacity",
			"max_instances", p.max,
		)
		if p.opts.observer != nil {
			p.opts.observer.ObserveEviction(evicted, "capacity")
		}
	}
	if p.opts.observer != nil {
		p.opts.observer.ObservePoolSize(size)
	}
}

// Remove evicts tenantID. Returns false if it was not resident.
func (p *Pool[H]) Remove(tenantID string) bool {
	p.mu.Lock()
	_, ok := p.entries[tenantID]
	if ok {
		delete(p.entries, tenantID)
		for i, id := range p.order {
			if id == tenantID {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
	}
	size := len(p.entries)
	p.mu.Unlock()

	if ok {
		p.opts.logger.Info("removed tenant instance", "tenant_id", tenantID)
		if p.opts.observer != nil {
			p.opts.observer.ObserveEviction(tenantID, "removed")
			p.opts.observer.ObservePoolSize(size)
		}
	}
	return ok
}

// Len returns the number of resident handles.
func (p *Pool[H]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Stats returns a snapshot of the pool.
func (p *Pool[H]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, len(p.order))
	copy(ids, p.order)
	return Stats{Count: len(p.entries), Max: p.max, TenantIDs: ids}
}
