package config

import "time"

// Default values for configuration fields.
const (
	// Limits defaults
	DefaultConcurrencyFloor = 2
	DefaultAdmissionTimeout = 10 * time.Minute
	DefaultLimitsWindow     = 60 * time.Second

	// Pool defaults
	DefaultMaxInstances     = 50
	DefaultPoolWorkingDir   = "./rag_local_storage"
	DefaultPoolBuildTimeout = 2 * time.Minute

	// Engine defaults
	DefaultEngineTimeout         = 120 * time.Second
	DefaultEngineWorkspaceHeader = "X-Workspace"

	// Redis defaults
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisPoolSize     = 10
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second

	// Tenants defaults
	DefaultTenantsConfigStore   = "local"
	DefaultTenantsConfigDir     = "./tenant_configs"
	DefaultTenantsWatchDebounce = 100 * time.Millisecond
	DefaultTenantsKeyPrefix     = "tenant:config"

	// Jobs defaults
	DefaultJobsBackend           = "memory"
	DefaultJobsKeyPrefix         = "saturn"
	DefaultJobsSQLitePath        = "data/jobs.db"
	DefaultJobsSQLiteBusyTimeout = 5 * time.Second
	DefaultJobsTTLActive         = 6 * time.Hour
	DefaultJobsTTLTerminal       = 24 * time.Hour
	DefaultJobsTTLBatch          = 24 * time.Hour
	DefaultJobsWriteRetries      = 3
	DefaultJobsCleanupSchedule   = "*/10 * * * *"

	// Server defaults
	DefaultServerListenAddress   = "127.0.0.1:9090"
	DefaultServerShutdownTimeout = 30 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "saturn"
	DefaultTracingTimeout     = 10 * time.Second
	DefaultTracingSampleRatio = 1.0
	DefaultTracingServiceName = "saturn"

	// Upstream-specific defaults
	DefaultEmbeddingDim       = 1024
	DefaultOCRMode            = "free_ocr"
	DefaultOCRDPI             = 200
	DefaultOCRMaxTokens       = 4000
	DefaultMinerUModelVersion = "vlm"
	DefaultMinerUPollTimeout  = 10 * time.Minute
)

// upstreamDefaults are the built-in operator defaults per upstream service.
var upstreamDefaults = map[string]UpstreamConfig{
	ServiceLLM: {
		Model:               "seed-1-6-250615",
		Path:                "/chat/completions",
		Timeout:             60 * time.Second,
		RequestsPerMinute:   800,
		TokensPerMinute:     40000,
		AvgTokensPerRequest: 3500,
		AvgRequestDuration:  20 * time.Second,
	},
	ServiceEmbedding: {
		Model:               "Qwen/Qwen3-Embedding-0.6B",
		Path:                "/embeddings",
		Timeout:             30 * time.Second,
		RequestsPerMinute:   1600,
		TokensPerMinute:     400000,
		AvgTokensPerRequest: 500,
		AvgRequestDuration:  time.Second,
	},
	ServiceRerank: {
		Model:               "Qwen/Qwen3-Reranker-8B",
		Path:                "/rerank",
		Timeout:             30 * time.Second,
		RequestsPerMinute:   1600,
		TokensPerMinute:     400000,
		AvgTokensPerRequest: 500,
		AvgRequestDuration:  time.Second,
	},
	ServiceOCR: {
		BaseURL:             "https://api.siliconflow.cn/v1",
		Model:               "deepseek-ai/DeepSeek-OCR",
		Path:                "/chat/completions",
		Timeout:             60 * time.Second,
		RequestsPerMinute:   800,
		TokensPerMinute:     40000,
		AvgTokensPerRequest: 3500,
		AvgRequestDuration:  10 * time.Second,
	},
	ServiceMinerU: {
		BaseURL:             "https://mineru.net",
		Path:                "/api/v4/extract/task",
		Timeout:             60 * time.Second,
		RequestsPerMinute:   60,
		TokensPerMinute:     0,
		AvgTokensPerRequest: 1,
		AvgRequestDuration:  5 * time.Second,
	},
}

// UpstreamDefaults returns the built-in defaults for the named service.
func UpstreamDefaults(name string) (UpstreamConfig, bool) {
	d, ok := upstreamDefaults[name]
	return d, ok
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Upstream defaults
	for _, u := range cfg.Upstreams.Each() {
		applyUpstreamDefaults(u.Config, upstreamDefaults[u.Name])
	}
	if cfg.Upstreams.Embedding.Dim == 0 {
		cfg.Upstreams.Embedding.Dim = DefaultEmbeddingDim
	}
	if cfg.Upstreams.OCR.DefaultMode == "" {
		cfg.Upstreams.OCR.DefaultMode = DefaultOCRMode
	}
	if cfg.Upstreams.OCR.DPI == 0 {
		cfg.Upstreams.OCR.DPI = DefaultOCRDPI
	}
	if cfg.Upstreams.OCR.MaxTokens == 0 {
		cfg.Upstreams.OCR.MaxTokens = DefaultOCRMaxTokens
	}
	if cfg.Upstreams.MinerU.ModelVersion == "" {
		cfg.Upstreams.MinerU.ModelVersion = DefaultMinerUModelVersion
	}
	if cfg.Upstreams.MinerU.PollTimeout == 0 {
		cfg.Upstreams.MinerU.PollTimeout = DefaultMinerUPollTimeout
	}

	// Limits defaults
	if cfg.Limits.ConcurrencyFloor == 0 {
		cfg.Limits.ConcurrencyFloor = DefaultConcurrencyFloor
	}
	if cfg.Limits.AdmissionTimeout == 0 {
		cfg.Limits.AdmissionTimeout = DefaultAdmissionTimeout
	}
	if cfg.Limits.Window == 0 {
		cfg.Limits.Window = DefaultLimitsWindow
	}

	// Pool defaults
	if cfg.Pool.MaxInstances == 0 {
		cfg.Pool.MaxInstances = DefaultMaxInstances
	}
	if cfg.Pool.WorkingDir == "" {
		cfg.Pool.WorkingDir = DefaultPoolWorkingDir
	}
	if cfg.Pool.BuildTimeout == 0 {
		cfg.Pool.BuildTimeout = DefaultPoolBuildTimeout
	}

	// Engine defaults
	if cfg.Engine.Timeout == 0 {
		cfg.Engine.Timeout = DefaultEngineTimeout
	}
	if cfg.Engine.WorkspaceHeader == "" {
		cfg.Engine.WorkspaceHeader = DefaultEngineWorkspaceHeader
	}

	// Redis defaults
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisDialTimeout
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = DefaultRedisReadTimeout
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = DefaultRedisWriteTimeout
	}

	// Tenants defaults
	if cfg.Tenants.ConfigStore == "" {
		cfg.Tenants.ConfigStore = DefaultTenantsConfigStore
	}
	if cfg.Tenants.ConfigDir == "" {
		cfg.Tenants.ConfigDir = DefaultTenantsConfigDir
	}
	if cfg.Tenants.WatchDebounce == 0 {
		cfg.Tenants.WatchDebounce = DefaultTenantsWatchDebounce
	}
	if cfg.Tenants.KeyPrefix == "" {
		cfg.Tenants.KeyPrefix = DefaultTenantsKeyPrefix
	}

	// Jobs defaults
	applyJobsDefaults(&cfg.Jobs)

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultServerListenAddress
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
}

// applyUpstreamDefaults fills zero fields of u from d.
// Explicit concurrency settings are never defaulted.
func applyUpstreamDefaults(u *UpstreamConfig, d UpstreamConfig) {
	if u.BaseURL == "" {
		u.BaseURL = d.BaseURL
	}
	if u.Model == "" {
		u.Model = d.Model
	}
	if u.Path == "" {
		u.Path = d.Path
	}
	if u.Timeout == 0 {
		u.Timeout = d.Timeout
	}
	if u.RequestsPerMinute == 0 {
		u.RequestsPerMinute = d.RequestsPerMinute
	}
	if u.TokensPerMinute == 0 {
		u.TokensPerMinute = d.TokensPerMinute
	}
	if u.AvgTokensPerRequest == 0 {
		u.AvgTokensPerRequest = d.AvgTokensPerRequest
	}
	if u.AvgRequestDuration == 0 {
		u.AvgRequestDuration = d.AvgRequestDuration
	}
}

// applyJobsDefaults applies default values to job tracking configuration.
func applyJobsDefaults(cfg *JobsConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultJobsBackend
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultJobsKeyPrefix
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = DefaultJobsSQLitePath
	}
	if cfg.SQLite.BusyTimeout == 0 {
		cfg.SQLite.BusyTimeout = DefaultJobsSQLiteBusyTimeout
	}
	if cfg.TTL.Active == 0 {
		cfg.TTL.Active = DefaultJobsTTLActive
	}
	if cfg.TTL.Terminal == 0 {
		cfg.TTL.Terminal = DefaultJobsTTLTerminal
	}
	if cfg.TTL.Batch == 0 {
		cfg.TTL.Batch = DefaultJobsTTLBatch
	}
	if cfg.WriteRetries == 0 {
		cfg.WriteRetries = DefaultJobsWriteRetries
	}
	if cfg.CleanupSchedule == "" {
		cfg.CleanupSchedule = DefaultJobsCleanupSchedule
	}
}
