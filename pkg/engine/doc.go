// Package engine builds per-tenant handles to the knowledge-graph engine.
//
// An Instance is the expensive object the tenant pool caches. Building one:
//
//  1. Loads the tenant's settings (none is fine)
//  2. Merges them over the global upstream configuration
//  3. Resolves each service's admission gate from the shared Registry
//     using the tenant's effective limits, and wraps an HTTP caller with it
//  4. Connects to the engine under the tenant's workspace
//
// Tenants with identical effective limits share gates. A tenant whose
// overrides change its limits gets gates of its own.
//
// Instances hold no resources that need explicit teardown, so the pool can
// drop an evicted or duplicate instance without closing it.
package engine
