// Package telemetry groups Saturn's observability packages.
//
// # Components
//
//   - logging: slog construction, context fields, secret redaction
//   - metrics: Prometheus collector for limiter, gate, pool and job events
//   - tracing: OpenTelemetry tracer provider, noop when disabled
//   - health: liveness and readiness probes
//
// The packages are wired together by the run command; none of them holds
// global state apart from what slog.SetDefault and otel.SetTracerProvider
// install.
package telemetry
