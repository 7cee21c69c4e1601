// Package health provides liveness and readiness probes for Saturn.
//
// # Endpoints
//
//   - /healthz: liveness, the process is running
//   - /readyz: readiness, every registered component check passes
//   - /version: build information
//
// # Usage
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("jobs", health.PingCheck(store))
//	checker.RegisterCheck("pool", health.PoolCheck(pool.Stats))
//	health.Register(mux, checker, version, commit, buildTime)
//
// Readiness checks run concurrently and each is bounded by the checker's
// timeout. A failing check marks the overall status "degraded" and the
// readiness endpoint answers 503.
package health
