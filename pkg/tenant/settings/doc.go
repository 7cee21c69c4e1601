// Package settings stores per-tenant overrides of upstream configuration
// and merges them over the global configuration.
//
// # Layering
//
// Every service has its own override struct with optional fields. A nil
// field keeps the global value. There is one merge function per service
// type, so a tenant can only override fields that exist for that service:
//
//	merged := settings.Merge(&cfg.Upstreams, tenantSettings)
//	llm := merged.LLM
//
// A tenant max_concurrent replaces the global max_concurrent, and is
// therefore the highest-precedence concurrency source for that tenant.
//
// # Stores
//
//   - FileStore: one <tenant>.yaml file per tenant in a directory
//   - RedisStore: one JSON value per tenant under <prefix>:<tenant>, no TTL
//
// Get returns (nil, nil) when a tenant has no settings. Absent settings are
// never an error: the tenant simply runs on global configuration.
//
// # Watching
//
// Watcher reports which tenant's settings file changed so the caller can
// evict that tenant's instance and rebuild it with the new settings.
package settings
