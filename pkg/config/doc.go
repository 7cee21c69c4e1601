// Package config provides configuration management for Saturn.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// The returned *Config is passed explicitly to the components that need it.
// There is no package-level instance.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention SATURN_SECTION_FIELD.
// For example:
//
//   - SATURN_JOBS_BACKEND overrides jobs.backend
//   - SATURN_UPSTREAMS_LLM_API_KEY overrides upstreams.llm.api_key
//   - SATURN_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Upstream Defaults
//
// Every known upstream has built-in operator defaults for its quotas and
// call profile. A requests_per_minute or tokens_per_minute of -1 disables
// that dimension; zero means "use the default".
package config
