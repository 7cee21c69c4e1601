// Package upstream defines the contract between the governance core and the
// external AI services it protects.
//
// A Caller sends one opaque payload to one service and returns the raw
// response. The core never looks inside the payload; it only needs a token
// estimate, which comes from a pluggable Estimator.
//
// Guarded wraps a Caller with the service's admission gate. Every call
// admits, runs and releases, and the release happens however the call
// returns:
//
//	llm := upstream.NewGuarded(gate, upstream.NewHTTPCaller(cfg, nil), upstream.NewCharEstimator(4, 500))
//	resp, err := llm.Call(ctx, payload)
//
// Upstream errors are returned unchanged and are never retried here.
package upstream
