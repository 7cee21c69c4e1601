package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SATURN_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention SATURN_SECTION_FIELD (e.g., SATURN_JOBS_BACKEND).
// Environment variables always take precedence over file-based configuration.
//
// An empty path skips the file and starts from defaults.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		var err error
		if cfg, err = readFile(path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML and applies defaults without validating.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format SATURN_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	for _, u := range cfg.Upstreams.Each() {
		applyUpstreamEnvOverrides(u.Config, u.Name)
	}

	// Limits overrides
	envInt("LIMITS_CONCURRENCY_FLOOR", &cfg.Limits.ConcurrencyFloor)
	envDuration("LIMITS_ADMISSION_TIMEOUT", &cfg.Limits.AdmissionTimeout)

	// Pool overrides
	envInt("POOL_MAX_INSTANCES", &cfg.Pool.MaxInstances)
	envString("POOL_WORKING_DIR", &cfg.Pool.WorkingDir)

	// Engine overrides
	envString("ENGINE_BASE_URL", &cfg.Engine.BaseURL)
	envString("ENGINE_API_KEY", &cfg.Engine.APIKey)
	envDuration("ENGINE_TIMEOUT", &cfg.Engine.Timeout)

	// Redis overrides
	envString("REDIS_ADDR", &cfg.Redis.Addr)
	envString("REDIS_PASSWORD", &cfg.Redis.Password)
	envInt("REDIS_DB", &cfg.Redis.DB)

	// Tenants overrides
	envString("TENANTS_CONFIG_STORE", &cfg.Tenants.ConfigStore)
	envString("TENANTS_CONFIG_DIR", &cfg.Tenants.ConfigDir)
	envBool("TENANTS_WATCH", &cfg.Tenants.Watch)

	// Jobs overrides
	envString("JOBS_BACKEND", &cfg.Jobs.Backend)
	envString("JOBS_SQLITE_PATH", &cfg.Jobs.SQLite.Path)
	envDuration("JOBS_TTL_ACTIVE", &cfg.Jobs.TTL.Active)
	envDuration("JOBS_TTL_TERMINAL", &cfg.Jobs.TTL.Terminal)
	envString("JOBS_CLEANUP_SCHEDULE", &cfg.Jobs.CleanupSchedule)

	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
}

// applyUpstreamEnvOverrides applies overrides for one upstream service.
// Variables follow the format SATURN_UPSTREAMS_<NAME>_<FIELD> where NAME is
// the uppercase service name.
func applyUpstreamEnvOverrides(u *UpstreamConfig, name string) {
	prefix := "UPSTREAMS_" + strings.ToUpper(name) + "_"

	envString(prefix+"BASE_URL", &u.BaseURL)
	envString(prefix+"API_KEY", &u.APIKey)
	envString(prefix+"MODEL", &u.Model)
	envDuration(prefix+"TIMEOUT", &u.Timeout)
	envInt(prefix+"REQUESTS_PER_MINUTE", &u.RequestsPerMinute)
	envInt(prefix+"TOKENS_PER_MINUTE", &u.TokensPerMinute)

	if val := os.Getenv(EnvPrefix + prefix + "MAX_CONCURRENT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			u.MaxConcurrent = &n
		}
	}
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
