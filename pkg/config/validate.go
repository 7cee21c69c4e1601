package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "jobs.backend").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateUpstreams(&cfg.Upstreams)...)
	errs = append(errs, validateLimits(&cfg.Limits)...)
	errs = append(errs, validatePool(&cfg.Pool)...)
	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateTenants(&cfg.Tenants, &cfg.Redis)...)
	errs = append(errs, validateJobs(&cfg.Jobs, &cfg.Redis)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateUpstreams validates every upstream block.
func validateUpstreams(cfg *UpstreamsConfig) []FieldError {
	var errs []FieldError

	for _, u := range cfg.Each() {
		errs = append(errs, validateUpstream("upstreams."+u.Name, u.Config)...)
	}

	if cfg.Embedding.Dim < 1 {
		errs = append(errs, FieldError{
			Field:   "upstreams.embedding.dim",
			Message: "embedding dimension must be positive",
		})
	}

	validModes := map[string]bool{"free_ocr": true, "grounding": true}
	if !validModes[cfg.OCR.DefaultMode] {
		errs = append(errs, FieldError{
			Field:   "upstreams.ds_ocr.default_mode",
			Message: fmt.Sprintf("invalid OCR mode %q: must be 'free_ocr' or 'grounding'", cfg.OCR.DefaultMode),
		})
	}
	if cfg.OCR.DPI < 72 || cfg.OCR.DPI > 600 {
		errs = append(errs, FieldError{
			Field:   "upstreams.ds_ocr.dpi",
			Message: "dpi must be between 72 and 600",
		})
	}
	if cfg.OCR.MaxTokens < 1 {
		errs = append(errs, FieldError{
			Field:   "upstreams.ds_ocr.max_tokens",
			Message: "max tokens must be positive",
		})
	}

	validVersions := map[string]bool{"pipeline": true, "vlm": true}
	if !validVersions[cfg.MinerU.ModelVersion] {
		errs = append(errs, FieldError{
			Field:   "upstreams.mineru.model_version",
			Message: fmt.Sprintf("invalid model version %q: must be 'pipeline' or 'vlm'", cfg.MinerU.ModelVersion),
		})
	}
	if cfg.MinerU.PollTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "upstreams.mineru.poll_timeout",
			Message: "poll timeout must be non-negative",
		})
	}

	return errs
}

// validateUpstream validates the fields shared by every upstream.
func validateUpstream(prefix string, u *UpstreamConfig) []FieldError {
	var errs []FieldError

	if u.BaseURL != "" {
		if err := validateURL(u.BaseURL); err != nil {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_url",
				Message: err.Error(),
			})
		}
	}
	if u.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".timeout",
			Message: "timeout must be non-negative",
		})
	}
	if u.RequestsPerMinute < -1 {
		errs = append(errs, FieldError{
			Field:   prefix + ".requests_per_minute",
			Message: "requests per minute must be positive, or -1 for unlimited",
		})
	}
	if u.TokensPerMinute < -1 {
		errs = append(errs, FieldError{
			Field:   prefix + ".tokens_per_minute",
			Message: "tokens per minute must be positive, or -1 for unlimited",
		})
	}
	if u.MaxConcurrent != nil && *u.MaxConcurrent < 1 {
		errs = append(errs, FieldError{
			Field:   prefix + ".max_concurrent",
			Message: "max concurrent must be at least 1",
		})
	}
	if u.DefaultConcurrent != nil && *u.DefaultConcurrent < 1 {
		errs = append(errs, FieldError{
			Field:   prefix + ".default_concurrent",
			Message: "default concurrent must be at least 1",
		})
	}
	if u.AvgTokensPerRequest < 1 {
		errs = append(errs, FieldError{
			Field:   prefix + ".avg_tokens_per_request",
			Message: "average tokens per request must be positive",
		})
	}
	if u.AvgRequestDuration <= 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".avg_request_duration",
			Message: "average request duration must be positive",
		})
	}

	return errs
}

// validateLimits validates admission limits.
func validateLimits(cfg *LimitsConfig) []FieldError {
	var errs []FieldError

	if cfg.ConcurrencyFloor < 2 {
		errs = append(errs, FieldError{
			Field:   "limits.concurrency_floor",
			Message: "concurrency floor must be at least 2",
		})
	}
	if cfg.AdmissionTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "limits.admission_timeout",
			Message: "admission timeout must be non-negative",
		})
	}
	if cfg.Window <= 0 {
		errs = append(errs, FieldError{
			Field:   "limits.window",
			Message: "window must be positive",
		})
	}

	return errs
}

// validatePool validates the tenant instance pool.
func validatePool(cfg *PoolConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxInstances < 1 {
		errs = append(errs, FieldError{
			Field:   "pool.max_instances",
			Message: "max instances must be at least 1",
		})
	}
	if cfg.WorkingDir == "" {
		errs = append(errs, FieldError{
			Field:   "pool.working_dir",
			Message: "working directory is required",
		})
	}
	if cfg.BuildTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "pool.build_timeout",
			Message: "build timeout must be non-negative",
		})
	}

	return errs
}

// validateEngine validates the engine connection.
func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError

	if cfg.BaseURL != "" {
		if err := validateURL(cfg.BaseURL); err != nil {
			errs = append(errs, FieldError{
				Field:   "engine.base_url",
				Message: err.Error(),
			})
		}
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "engine.timeout",
			Message: "timeout must be non-negative",
		})
	}
	if cfg.WorkspaceHeader == "" {
		errs = append(errs, FieldError{
			Field:   "engine.workspace_header",
			Message: "workspace header is required",
		})
	}

	return errs
}

// validateTenants validates tenant settings storage.
func validateTenants(cfg *TenantsConfig, redis *RedisConfig) []FieldError {
	var errs []FieldError

	switch cfg.ConfigStore {
	case "local":
		if cfg.ConfigDir == "" {
			errs = append(errs, FieldError{
				Field:   "tenants.config_dir",
				Message: "config directory is required for the local store",
			})
		}
	case "redis":
		if redis.Addr == "" {
			errs = append(errs, FieldError{
				Field:   "redis.addr",
				Message: "redis address is required for the redis tenant store",
			})
		}
		if cfg.Watch {
			errs = append(errs, FieldError{
				Field:   "tenants.watch",
				Message: "watch is only supported with the local store",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "tenants.config_store",
			Message: fmt.Sprintf("invalid config store %q: must be 'local' or 'redis'", cfg.ConfigStore),
		})
	}

	if cfg.WatchDebounce < 0 {
		errs = append(errs, FieldError{
			Field:   "tenants.watch_debounce",
			Message: "watch debounce must be non-negative",
		})
	}

	return errs
}

// validateJobs validates job tracking.
func validateJobs(cfg *JobsConfig, redis *RedisConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "redis":
		if redis.Addr == "" {
			errs = append(errs, FieldError{
				Field:   "redis.addr",
				Message: "redis address is required for the redis job backend",
			})
		}
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "jobs.sqlite.path",
				Message: "sqlite path is required for the sqlite job backend",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "jobs.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory', 'redis', or 'sqlite'", cfg.Backend),
		})
	}

	if cfg.TTL.Active <= 0 {
		errs = append(errs, FieldError{Field: "jobs.ttl.active", Message: "ttl must be positive"})
	}
	if cfg.TTL.Terminal <= 0 {
		errs = append(errs, FieldError{Field: "jobs.ttl.terminal", Message: "ttl must be positive"})
	}
	if cfg.TTL.Batch <= 0 {
		errs = append(errs, FieldError{Field: "jobs.ttl.batch", Message: "ttl must be positive"})
	}

	if cfg.WriteRetries < -1 || cfg.WriteRetries > 10 {
		errs = append(errs, FieldError{
			Field:   "jobs.write_retries",
			Message: "write retries must be between -1 and 10",
		})
	}

	if _, err := cron.ParseStandard(cfg.CleanupSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "jobs.cleanup_schedule",
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		})
	}

	return errs
}

// validateServer validates the operational listener.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be non-negative",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	// Validate metrics path
	if cfg.Metrics.IsEnabled() && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	// Validate tracing configuration
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}

// validateURL checks that raw is an absolute http(s) URL.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL %q: host is required", raw)
	}
	return nil
}
