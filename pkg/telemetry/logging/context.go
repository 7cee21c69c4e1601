package logging

import (
	"context"
	"log/slog"
)

// contextKey is the type of context keys carrying log fields.
type contextKey string

// Context keys for log fields.
const (
	TenantIDKey  contextKey = "tenant_id"
	JobIDKey     contextKey = "job_id"
	ServiceKey   contextKey = "service"
	RequestIDKey contextKey = "request_id"
)

// contextKeys lists the keys in the order they are appended to records.
var contextKeys = []contextKey{TenantIDKey, JobIDKey, ServiceKey, RequestIDKey}

// WithTenantID adds a tenant id to the context.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// WithJobID adds a job id to the context.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, JobIDKey, jobID)
}

// WithService adds an upstream service name to the context.
func WithService(ctx context.Context, service string) context.Context {
	return context.WithValue(ctx, ServiceKey, service)
}

// WithRequestID adds a request id to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// TenantID returns the tenant id in ctx, or "".
func TenantID(ctx context.Context) string { return value(ctx, TenantIDKey) }

// JobID returns the job id in ctx, or "".
func JobID(ctx context.Context) string { return value(ctx, JobIDKey) }

// Service returns the service name in ctx, or "".
func Service(ctx context.Context) string { return value(ctx, ServiceKey) }

// RequestID returns the request id in ctx, or "".
func RequestID(ctx context.Context) string { return value(ctx, RequestIDKey) }

func value(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// contextAttrs returns the log fields carried by ctx.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range contextKeys {
		if v := value(ctx, key); v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}
