package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/saturn/internal/redisconn"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/jobs"
)

// Open creates the backend named by cfg.Jobs.Backend. When that backend
// cannot be opened the error is logged and an in-memory backend is
// returned instead.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) jobs.Backend {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "jobs.storage")

	backend, err := OpenStrict(ctx, cfg)
	if err != nil {
		logger.Error("job backend unavailable, falling back to memory; job state will not survive a restart",
			"backend", cfg.Jobs.Backend,
			"error", err,
		)
		return NewMemory()
	}

	logger.Info("job backend opened", "backend", backend.Name())
	return backend
}

// OpenStrict creates the backend named by cfg.Jobs.Backend. Failures wrap
// ErrBackendUnavailable.
func OpenStrict(ctx context.Context, cfg *config.Config) (jobs.Backend, error) {
	switch cfg.Jobs.Backend {
	case "", BackendMemory:
		return NewMemory(), nil

	case BackendRedis:
		client, err := redisconn.New(ctx, &cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		}
		return NewRedis(client, RedisConfig{
			Prefix:   cfg.Jobs.KeyPrefix,
			IndexTTL: indexTTL(cfg.Jobs.TTL),
		}), nil

	case BackendSQLite:
		s, err := NewSQLite(SQLiteConfig{
			Path:        cfg.Jobs.SQLite.Path,
			BusyTimeout: cfg.Jobs.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrBackendUnavailable, cfg.Jobs.Backend)
	}
}

// TTL converts the configured expiry buckets.
func TTL(cfg config.JobsTTLConfig) jobs.TTL {
	return jobs.TTL{
		Active:   cfg.Active,
		Terminal: cfg.Terminal,
		Batch:    cfg.Batch,
	}
}

// indexTTL outlives every record the index can point at.
func indexTTL(cfg config.JobsTTLConfig) time.Duration {
	return max(cfg.Active, cfg.Terminal, cfg.Batch)
}
