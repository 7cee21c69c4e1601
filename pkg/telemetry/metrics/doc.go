// Package metrics exposes Saturn's Prometheus metrics.
//
// A Collector implements the observer interfaces of the limits, ratelimit,
// tenant and jobs packages, so it is passed to those constructors directly:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	registry := limits.NewRegistry(rcfg, limits.WithObserver(collector))
//	pool := tenant.NewPool(max, build, tenant.WithObserver(collector))
//	store := jobs.NewStore(backend, ttl, jobs.WithObserver(collector))
//	collector.RegisterGates(registry.Snapshot)
//	http.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// # Metrics
//
//   - saturn_limiter_waits_total{service,reason}
//   - saturn_limiter_wait_seconds{service,reason}
//   - saturn_admissions_total{service,result}
//   - saturn_admission_wait_seconds{service}
//   - saturn_admissions_in_flight{service}
//   - saturn_gate_usage{service,dimension,kind}
//   - saturn_pool_instances
//   - saturn_pool_evictions_total{reason}
//   - saturn_instance_builds_total{result}
//   - saturn_instance_build_seconds
//   - saturn_job_status_total{status}
//   - saturn_job_duplicate_rejections_total
//
// Labels never carry tenant ids, which keeps cardinality bounded by the
// number of upstream services.
package metrics
