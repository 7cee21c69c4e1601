package upstream

import (
	"context"

	"mercator-hq/saturn/pkg/limits"
)

// Guarded is a Caller whose every call passes through an admission gate.
type Guarded struct {
	gate      *limits.Gate
	caller    Caller
	estimator Estimator
}

// NewGuarded wraps caller with gate. A nil estimator charges zero tokens,
// so only the request dimension is enforced.
func NewGuarded(gate *limits.Gate, caller Caller, estimator Estimator) *Guarded {
	if estimator == nil {
		estimator = Fixed(0)
	}
	return &Guarded{gate: gate, caller: caller, estimator: estimator}
}

// Call estimates the payload's tokens, then calls CallWithTokens.
func (g *Guarded) Call(ctx context.Context, payload []byte) ([]byte, error) {
	return g.CallWithTokens(ctx, payload, g.estimator.Estimate(payload))
}

// CallWithTokens admits with a caller-supplied estimate, calls the upstream
// and releases. Admission errors and upstream errors are returned as-is.
func (g *Guarded) CallWithTokens(ctx context.Context, payload []byte, estimatedTokens int) ([]byte, error) {
	adm, err := g.gate.Admit(ctx, estimatedTokens)
	if err != nil {
		return nil, err
	}
	defer adm.Release()

	return g.caller.Call(ctx, payload)
}

// Gate returns the admission gate.
func (g *Guarded) Gate() *limits.Gate {
	return g.gate
}

// Service returns the gate's service name.
func (g *Guarded) Service() string {
	return g.gate.Config().Service
}
