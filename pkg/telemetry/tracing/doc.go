// Package tracing sets up OpenTelemetry tracing for Saturn.
//
// # Overview
//
// New installs a global tracer provider that exports spans over OTLP gRPC.
// When tracing is disabled the global provider is left as the no-op default,
// so instrumented packages pay almost nothing.
//
// Spans emitted by Saturn:
//   - limits.admit: one per admission, with the service and wait time
//   - tenant.build: one per tenant instance construction
//
// Outbound HTTP calls to upstream services and the knowledge-graph engine
// carry W3C Trace Context headers via Inject.
//
// # Sampling
//
// Sampling is parent-based. Root spans are sampled by trace id with the
// configured ratio (1.0 samples everything, 0 nothing).
//
// # Usage
//
//	provider, err := tracing.New(ctx, &cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer provider.Shutdown(context.Background())
package tracing
