package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"mercator-hq/saturn/internal/redisconn"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/engine"
	"mercator-hq/saturn/pkg/jobs"
	"mercator-hq/saturn/pkg/jobs/storage"
	"mercator-hq/saturn/pkg/limits"
	"mercator-hq/saturn/pkg/telemetry/health"
	"mercator-hq/saturn/pkg/telemetry/metrics"
	"mercator-hq/saturn/pkg/telemetry/tracing"
	"mercator-hq/saturn/pkg/tenant"
	"mercator-hq/saturn/pkg/tenant/settings"
)

// StatusPath serves the gate and pool snapshot.
const StatusPath = "/status"

// app owns every long-lived component started by the run command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	tracing   *tracing.Provider
	metrics   *metrics.Collector
	registry  *limits.Registry
	settings  settings.Store
	watcher   *settings.Watcher
	factory   *engine.Factory
	pool      *tenant.Pool[*engine.Instance]
	jobs      *jobs.Store
	reporter  *jobs.Reporter
	retention *storage.Scheduler
	health    *health.Checker
	redis     *redis.Client

	watchDone chan struct{}
	closeOnce sync.Once
}

// newApp wires the components described by cfg. Components that were
// started are stopped by Close even when newApp fails part way.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger.With("component", "saturn")}
	defer func() {
		if err != nil {
			a.Close(context.Background())
		}
	}()

	if a.tracing, err = tracing.New(ctx, &cfg.Telemetry.Tracing, Version); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	a.registry = limits.NewRegistry(limits.RegistryConfigFrom(&cfg.Limits),
		limits.WithLogger(logger),
		limits.WithObserver(a.metrics),
		limits.WithTracer(a.tracing.Tracer("saturn/limits")),
	)
	for _, u := range cfg.Upstreams.Each() {
		a.registry.Gate(u.Name, limits.FromUpstream(u.Config))
	}
	a.metrics.RegisterGates(a.registry.Snapshot)

	if a.settings, a.redis, err = openSettingsStore(ctx, cfg, logger); err != nil {
		return nil, err
	}

	a.factory = engine.NewFactory(cfg, a.registry,
		engine.WithSettingsStore(a.settings),
		engine.WithFactoryLogger(logger),
	)
	a.pool = tenant.NewPool(cfg.Pool.MaxInstances, a.factory.Builder(),
		tenant.WithLogger(logger),
		tenant.WithObserver(a.metrics),
		tenant.WithTracer(a.tracing.Tracer("saturn/tenant")),
		tenant.WithBuildTimeout(cfg.Pool.BuildTimeout),
	)

	if err = a.startWatcher(ctx); err != nil {
		return nil, err
	}

	backend := storage.Open(ctx, cfg, logger)
	a.jobs = jobs.NewStore(backend, storage.TTL(cfg.Jobs.TTL),
		jobs.WithLogger(logger),
		jobs.WithObserver(a.metrics),
	)
	a.reporter = jobs.NewReporter(a.jobs, jobs.ReporterConfig{MaxRetries: cfg.Jobs.WriteRetries}, logger)
	a.retention = storage.NewScheduler(a.jobs, cfg.Jobs.CleanupSchedule, logger)
	if err = a.retention.Start(ctx); err != nil {
		return nil, fmt.Errorf("start job retention: %w", err)
	}

	a.health = health.New(0)
	a.health.RegisterCheck("jobs", health.PingCheck(a.jobs))
	a.health.RegisterCheck("pool", health.PoolCheck(a.pool.Stats))
	if a.redis != nil {
		client := a.redis
		a.health.RegisterCheck("tenant_settings", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}

	return a, nil
}

// openSettingsStore opens the tenant settings store named by the config.
// The returned client is nil unless the store is backed by Redis.
func openSettingsStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (settings.Store, *redis.Client, error) {
	switch cfg.Tenants.ConfigStore {
	case "redis":
		client, err := redisconn.New(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("open tenant settings store: %w", err)
		}
		return settings.NewRedisStore(client, cfg.Tenants.KeyPrefix, logger), client, nil
	default:
		store, err := settings.NewFileStore(cfg.Tenants.ConfigDir, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open tenant settings store: %w", err)
		}
		return store, nil, nil
	}
}

// startWatcher evicts a tenant's instance when its settings file changes so
// the next request rebuilds it with the new settings.
func (a *app) startWatcher(ctx context.Context) error {
	if !a.cfg.Tenants.Watch {
		return nil
	}
	w, err := settings.NewWatcher(a.cfg.Tenants.ConfigDir, a.cfg.Tenants.WatchDebounce, a.logger)
	if err != nil {
		return fmt.Errorf("watch tenant settings: %w", err)
	}
	a.watcher = w
	a.watchDone = make(chan struct{})

	go func() {
		defer close(a.watchDone)
		err := w.Watch(ctx, func(tenantID string) {
			if a.pool.Remove(tenantID) {
				a.logger.Info("tenant settings changed, instance evicted", "tenant_id", tenantID)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("tenant settings watcher stopped", "error", err)
		}
	}()
	return nil
}

// Handler returns the operational HTTP surface.
func (a *app) Handler() http.Handler {
	mux := http.NewServeMux()
	if a.cfg.Telemetry.Metrics.IsEnabled() {
		mux.Handle(a.cfg.Telemetry.Metrics.Path, a.metrics.Handler())
	}
	health.Register(mux, a.health, Version, GitCommit, BuildDate)
	mux.HandleFunc(StatusPath, a.statusHandler)
	return mux
}

// statusReport is served at StatusPath.
type statusReport struct {
	Gates []limits.GateStatus `json:"gates"`
	Pool  tenant.Stats        `json:"pool"`
}

func (a *app) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(statusReport{
		Gates: a.registry.Snapshot(),
		Pool:  a.pool.Stats(),
	})
}

// Serve listens on the configured address until ctx is done, then shuts the
// server down within the configured timeout.
func (a *app) Serve(ctx context.Context, ready func(addr net.Addr)) error {
	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.Server.ListenAddress, err)
	}

	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	a.logger.Info("serving operational endpoints", "address", ln.Addr().String())
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close stops background work and releases backends. It is safe to call
// more than once.
func (a *app) Close(ctx context.Context) {
	a.closeOnce.Do(func() {
		if a.watcher != nil {
			_ = a.watcher.Stop()
			<-a.watchDone
		}
		if a.retention != nil {
			a.retention.Stop()
		}
		if a.jobs != nil {
			if err := a.jobs.Close(); err != nil {
				a.logger.Warn("failed to close job store", "error", err)
			}
		}
		if a.redis != nil {
			_ = a.redis.Close()
		}
		if a.tracing != nil {
			if err := a.tracing.Shutdown(ctx); err != nil {
				a.logger.Warn("failed to flush traces", "error", err)
			}
		}
	})
}
