package config

import "time"

// Upstream service names.
const (
	ServiceLLM       = "llm"
	ServiceEmbedding = "embedding"
	ServiceRerank    = "rerank"
	ServiceOCR       = "ds_ocr"
	ServiceMinerU    = "mineru"
)

// Config is the root configuration structure for Saturn.
// It covers upstream services and their quotas, admission limits, the tenant
// instance pool, the knowledge-graph engine, job tracking and telemetry.
type Config struct {
	// Upstreams configures each external AI service.
	Upstreams UpstreamsConfig `yaml:"upstreams"`

	// Limits configures admission gates shared by all upstreams.
	Limits LimitsConfig `yaml:"limits"`

	// Pool configures the tenant instance pool.
	Pool PoolConfig `yaml:"pool"`

	// Engine configures the knowledge-graph engine connection.
	Engine EngineConfig `yaml:"engine"`

	// Redis is the shared Redis connection used by the redis job backend
	// and the redis tenant settings store.
	Redis RedisConfig `yaml:"redis"`

	// Tenants configures where per-tenant settings are stored.
	Tenants TenantsConfig `yaml:"tenants"`

	// Jobs configures job and batch tracking.
	Jobs JobsConfig `yaml:"jobs"`

	// Server configures the operational HTTP listener (metrics, health).
	Server ServerConfig `yaml:"server"`

	// Telemetry configures logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// UpstreamsConfig holds one block per upstream service.
type UpstreamsConfig struct {
	LLM       UpstreamConfig  `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Rerank    UpstreamConfig  `yaml:"rerank"`
	OCR       OCRConfig       `yaml:"ds_ocr"`
	MinerU    MinerUConfig    `yaml:"mineru"`
}

// UpstreamConfig is the configuration common to every upstream service.
type UpstreamConfig struct {
	// BaseURL is the API root of the service.
	BaseURL string `yaml:"base_url"`

	// APIKey is sent as a bearer token.
	APIKey string `yaml:"api_key"`

	// Model is the model name passed to the service.
	Model string `yaml:"model"`

	// Path is appended to BaseURL for each call.
	Path string `yaml:"path"`

	// Timeout bounds a single upstream call.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// RequestsPerMinute is the provider's RPM quota. -1 disables the limit.
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// TokensPerMinute is the provider's TPM quota. -1 disables the limit.
	TokensPerMinute int `yaml:"tokens_per_minute"`

	// MaxConcurrent is an explicit concurrency override.
	MaxConcurrent *int `yaml:"max_concurrent,omitempty"`

	// DefaultConcurrent is the operator default concurrency. Used when
	// MaxConcurrent is not set.
	DefaultConcurrent *int `yaml:"default_concurrent,omitempty"`

	// AvgTokensPerRequest is the typical token cost of one call, used to
	// auto-compute concurrency.
	AvgTokensPerRequest int `yaml:"avg_tokens_per_request"`

	// AvgRequestDuration is the typical duration of one call, used to
	// auto-compute concurrency.
	AvgRequestDuration time.Duration `yaml:"avg_request_duration"`
}

// EmbeddingConfig configures the embedding service.
type EmbeddingConfig struct {
	UpstreamConfig `yaml:",inline"`

	// Dim is the embedding vector dimension.
	// Default: 1024
	Dim int `yaml:"dim"`
}

// OCRConfig configures the DeepSeek-OCR service.
type OCRConfig struct {
	UpstreamConfig `yaml:",inline"`

	// DefaultMode is the OCR prompt mode.
	// Options: "free_ocr", "grounding"
	// Default: "free_ocr"
	DefaultMode string `yaml:"default_mode"`

	// DPI is the rasterization resolution for PDF pages.
	// Default: 200
	DPI int `yaml:"dpi"`

	// MaxTokens caps the OCR completion length.
	// Default: 4000
	MaxTokens int `yaml:"max_tokens"`
}

// MinerUConfig configures the MinerU document parsing service.
type MinerUConfig struct {
	UpstreamConfig `yaml:",inline"`

	// ModelVersion selects the MinerU pipeline.
	// Options: "pipeline", "vlm"
	// Default: "vlm"
	ModelVersion string `yaml:"model_version"`

	// PollTimeout bounds how long a parse task is polled.
	// Default: 10m
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

// LimitsConfig configures admission gates.
type LimitsConfig struct {
	// ConcurrencyFloor is the minimum auto-computed concurrency.
	// Default: 2
	ConcurrencyFloor int `yaml:"concurrency_floor"`

	// AdmissionTimeout bounds how long a caller waits for admission.
	// Default: 10m
	AdmissionTimeout time.Duration `yaml:"admission_timeout"`

	// Window is the rate-limit window.
	// Default: 60s
	Window time.Duration `yaml:"window"`
}

// PoolConfig configures the tenant instance pool.
type PoolConfig struct {
	// MaxInstances is the maximum number of resident tenant instances.
	// Default: 50
	MaxInstances int `yaml:"max_instances"`

	// WorkingDir is the root directory for per-tenant engine workspaces.
	// Default: "./rag_local_storage"
	WorkingDir string `yaml:"working_dir"`

	// BuildTimeout bounds construction of one tenant instance.
	// Default: 2m
	BuildTimeout time.Duration `yaml:"build_timeout"`
}

// EngineConfig configures the knowledge-graph engine.
type EngineConfig struct {
	// BaseURL is the engine server root. Empty disables remote initialization.
	BaseURL string `yaml:"base_url"`

	// APIKey is sent as a bearer token.
	APIKey string `yaml:"api_key"`

	// Timeout bounds a single engine call.
	// Default: 120s
	Timeout time.Duration `yaml:"timeout"`

	// WorkspaceHeader carries the tenant workspace on every engine call.
	// Default: "X-Workspace"
	WorkspaceHeader string `yaml:"workspace_header"`
}

// RedisConfig configures the shared Redis client.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// TenantsConfig configures per-tenant settings storage.
type TenantsConfig struct {
	// ConfigStore selects the settings store.
	// Options: "local", "redis"
	// Default: "local"
	ConfigStore string `yaml:"config_store"`

	// ConfigDir is the directory of <tenant>.yaml files for the local store.
	// Default: "./tenant_configs"
	ConfigDir string `yaml:"config_dir"`

	// Watch evicts a tenant's instance when its settings file changes.
	// Only applies to the local store.
	Watch bool `yaml:"watch"`

	// WatchDebounce coalesces bursts of file events.
	// Default: 100ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// KeyPrefix prefixes redis settings keys.
	// Default: "tenant:config"
	KeyPrefix string `yaml:"key_prefix"`
}

// JobsConfig configures job and batch tracking.
type JobsConfig struct {
	// Backend selects the job store backend.
	// Options: "memory", "redis", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// KeyPrefix prefixes redis keys.
	// Default: "saturn"
	KeyPrefix string `yaml:"key_prefix"`

	// SQLite configures the sqlite backend.
	SQLite JobsSQLiteConfig `yaml:"sqlite"`

	// TTL configures record expiry by status bucket.
	TTL JobsTTLConfig `yaml:"ttl"`

	// WriteRetries is how many times a failed state write is retried.
	// Zero selects the default and -1 disables retries.
	// Default: 3
	WriteRetries int `yaml:"write_retries"`

	// CleanupSchedule is the cron expression for expired record cleanup.
	// Default: "*/10 * * * *"
	CleanupSchedule string `yaml:"cleanup_schedule"`
}

// JobsSQLiteConfig configures the sqlite job backend.
type JobsSQLiteConfig struct {
	// Path is the database file.
	// Default: "data/jobs.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// JobsTTLConfig configures record expiry.
type JobsTTLConfig struct {
	// Active applies to pending, processing and deleting jobs.
	// Default: 6h
	Active time.Duration `yaml:"active"`

	// Terminal applies to completed and failed jobs.
	// Default: 24h
	Terminal time.Duration `yaml:"terminal"`

	// Batch applies to batch records.
	// Default: 24h
	Batch time.Duration `yaml:"batch"`
}

// ServerConfig configures the operational HTTP listener.
type ServerConfig struct {
	// ListenAddress serves /metrics, /healthz and /readyz.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// Redact replaces API keys and other secrets in log attributes.
	// Default: true
	Redact *bool `yaml:"redact,omitempty"`
}

// RedactEnabled reports whether secret redaction is on.
func (c LoggingConfig) RedactEnabled() bool {
	return c.Redact == nil || *c.Redact
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: true
	Enabled *bool `yaml:"enabled,omitempty"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "saturn"
	Namespace string `yaml:"namespace"`
}

// IsEnabled reports whether metrics are on.
func (c MetricsConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is the service name in traces.
	// Default: "saturn"
	ServiceName string `yaml:"service_name"`
}

// NamedUpstream pairs a service name with its common configuration.
type NamedUpstream struct {
	Name   string
	Config *UpstreamConfig
}

// Each returns every upstream in a fixed order. The returned pointers
// alias the receiver.
func (u *UpstreamsConfig) Each() []NamedUpstream {
	return []NamedUpstream{
		{Name: ServiceLLM, Config: &u.LLM},
		{Name: ServiceEmbedding, Config: &u.Embedding.UpstreamConfig},
		{Name: ServiceRerank, Config: &u.Rerank},
		{Name: ServiceOCR, Config: &u.OCR.UpstreamConfig},
		{Name: ServiceMinerU, Config: &u.MinerU.UpstreamConfig},
	}
}

// Get returns the named upstream, or nil if the name is unknown.
func (u *UpstreamsConfig) Get(name string) *UpstreamConfig {
	for _, n := range u.Each() {
		if n.Name == name {
			return n.Config
		}
	}
	return nil
}
