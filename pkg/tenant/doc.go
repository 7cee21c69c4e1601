// Package tenant keeps a bounded pool of per-tenant engine handles.
//
// # Overview
//
// Handles are expensive: building one merges tenant settings, wires gated
// upstream callers and performs remote initialization. Pool keeps at most
// MaxInstances of them resident and builds missing ones on demand.
//
// # Eviction
//
// When a new handle is inserted into a full pool, the longest-resident
// tenant is evicted. Order is insertion order: reading a resident tenant
// does not refresh its position. This is FIFO, not LRU, and is intentional.
// Eviction happens only after the new handle was built successfully, so a
// failed build never costs another tenant its handle.
//
// Evicted handles are dropped, not closed. A handle must therefore be safe
// to abandon once no caller references it.
//
// # Cold Starts
//
// Concurrent requests for the same cold tenant are coalesced: one build runs
// and every waiter receives its result. Racing callers share that build's
// latency. A waiter whose context ends stops waiting without cancelling the
// build for the others.
//
// # Usage
//
//	pool := tenant.NewPool(50, factory.New, tenant.WithLogger(logger))
//	inst, err := pool.GetOrCreate(ctx, "acme")
package tenant
