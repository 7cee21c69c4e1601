package limits

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"mercator-hq/saturn/pkg/limits/budget"
)

// RegistryConfig configures gates created by a Registry.
type RegistryConfig struct {
	// Floor is the minimum auto-computed concurrency.
	Floor int

	// AdmissionTimeout is applied to every gate.
	AdmissionTimeout time.Duration

	// Window overrides the sliding window for every gate. Zero means one minute.
	Window time.Duration
}

// Registry creates and memoizes gates.
//
// Gates are keyed by (service, rpm, tpm, concurrency), so tenants whose
// merged limits are identical share one gate, and a tenant with distinct
// overrides gets its own. A Registry is constructed once at startup and
// passed to whatever builds upstream callers.
type Registry struct {
	cfg    RegistryConfig
	opts   []Option
	logger *slog.Logger

	mu        sync.Mutex
	gates     map[GateKey]*Gate
	decisions map[limitsKey]budget.Decision
}

// limitsKey is a comparable form of ServiceLimits.
type limitsKey struct {
	service           string
	rpm, tpm          int
	maxConcurrent     int
	defaultConcurrent int
	avgTokens         int
	avgDuration       time.Duration
}

// NewRegistry creates an empty registry. opts are applied to every gate.
func NewRegistry(cfg RegistryConfig, opts ...Option) *Registry {
	if cfg.Floor < budget.DefaultFloor {
		cfg.Floor = budget.DefaultFloor
	}
	o := buildOptions(opts)
	return &Registry{
		cfg:       cfg,
		opts:      opts,
		logger:    o.logger.With("component", "limits.registry"),
		gates:     make(map[GateKey]*Gate),
		decisions: make(map[limitsKey]budget.Decision),
	}
}

// Gate returns the gate for service with the given effective limits,
// creating it on first use.
func (r *Registry) Gate(service string, sl ServiceLimits) *Gate {
	r.mu.Lock()
	defer r.mu.Unlock()

	decision := r.resolveLocked(service, sl)
	key := GateKey{
		Service:     service,
		RPM:         sl.RPM,
		TPM:         sl.TPM,
		Concurrency: decision.Value,
	}

	if g, ok := r.gates[key]; ok {
		return g
	}

	g := NewGate(GateConfig{
		Service:          service,
		RPM:              sl.RPM,
		TPM:              sl.TPM,
		Concurrency:      decision.Value,
		AdmissionTimeout: r.cfg.AdmissionTimeout,
		Window:           r.cfg.Window,
	}, r.opts...)
	r.gates[key] = g

	r.logger.Info("created admission gate",
		"service", service,
		"rpm", sl.RPM,
		"tpm", sl.TPM,
		"concurrency", decision.Value,
		"concurrency_source", string(decision.Source),
	)
	return g
}

// Resolve returns the concurrency decision for service without creating
// a gate.
func (r *Registry) Resolve(service string, sl ServiceLimits) budget.Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked(service, sl)
}

// resolveLocked memoizes budget decisions so clamp warnings are logged once
// per distinct limit set. Caller must hold r.mu.
func (r *Registry) resolveLocked(service string, sl ServiceLimits) budget.Decision {
	k := limitsKey{
		service:     service,
		rpm:         sl.RPM,
		tpm:         sl.TPM,
		avgTokens:   sl.AvgTokensPerRequest,
		avgDuration: sl.AvgRequestDuration,
	}
	if sl.MaxConcurrent != nil {
		k.maxConcurrent = *sl.MaxConcurrent
	}
	if sl.DefaultConcurrent != nil {
		k.defaultConcurrent = *sl.DefaultConcurrent
	}

	if d, ok := r.decisions[k]; ok {
		return d
	}

	d := budget.Resolve(service, budget.Inputs{
		Override:        sl.MaxConcurrent,
		OperatorDefault: sl.DefaultConcurrent,
		Params: budget.Params{
			RPM:                 sl.RPM,
			TPM:                 sl.TPM,
			AvgTokensPerRequest: sl.AvgTokensPerRequest,
			AvgRequestDuration:  sl.AvgRequestDuration,
		},
	}, r.cfg.Floor, r.logger)
	r.decisions[k] = d
	return d
}

// Len returns the number of memoized gates.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.gates)
}

// Snapshot returns the status of every gate, ordered by service name and
// then by concurrency.
func (r *Registry) Snapshot() []GateStatus {
	r.mu.Lock()
	gates := make([]*Gate, 0, len(r.gates))
	for _, g := range r.gates {
		gates = append(gates, g)
	}
	r.mu.Unlock()

	sort.Slice(gates, func(i, j int) bool {
		a, b := gates[i].Key(), gates[j].Key()
		if a.Service != b.Service {
			return a.Service < b.Service
		}
		if a.Concurrency != b.Concurrency {
			return a.Concurrency < b.Concurrency
		}
		if a.RPM != b.RPM {
			return a.RPM < b.RPM
		}
		return a.TPM < b.TPM
	})

	out := make([]GateStatus, 0, len(gates))
	for _, g := range gates {
		out = append(out, g.Status())
	}
	return out
}
