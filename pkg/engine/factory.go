package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/limits"
	"mercator-hq/saturn/pkg/tenant"
	"mercator-hq/saturn/pkg/tenant/settings"
	"mercator-hq/saturn/pkg/upstream"
)

// Factory builds Instances.
type Factory struct {
	upstreams  config.UpstreamsConfig
	workingDir string
	store      settings.Store
	registry   *limits.Registry
	connector  Connector
	estimators map[string]upstream.Estimator
	httpOpts   []upstream.HTTPOption
	logger     *slog.Logger
	now        func() time.Time
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithSettingsStore sets where tenant overrides are loaded from. Without
// one every tenant runs on global configuration.
func WithSettingsStore(store settings.Store) FactoryOption {
	return func(f *Factory) { f.store = store }
}

// WithConnector replaces the engine connector.
func WithConnector(c Connector) FactoryOption {
	return func(f *Factory) {
		if c != nil {
			f.connector = c
		}
	}
}

// WithEstimator overrides the token estimator for one service.
func WithEstimator(service string, e upstream.Estimator) FactoryOption {
	return func(f *Factory) { f.estimators[service] = e }
}

// WithHTTPOptions passes options to every upstream HTTP caller.
func WithHTTPOptions(opts ...upstream.HTTPOption) FactoryOption {
	return func(f *Factory) { f.httpOpts = append(f.httpOpts, opts...) }
}

// WithFactoryLogger sets the logger.
func WithFactoryLogger(logger *slog.Logger) FactoryOption {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFactory creates a factory over the global configuration. cfg must
// already have defaults applied.
func NewFactory(cfg *config.Config, registry *limits.Registry, opts ...FactoryOption) *Factory {
	f := &Factory{
		upstreams:  cfg.Upstreams,
		workingDir: cfg.Pool.WorkingDir,
		registry:   registry,
		estimators: DefaultEstimators(&cfg.Upstreams),
		logger:     slog.Default(),
		now:        time.Now,
	}
	if cfg.Engine.BaseURL != "" {
		f.connector = NewHTTPConnector(&cfg.Engine, nil, nil)
	} else {
		f.connector = NopConnector{}
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "engine.factory")
	return f
}

// Builder returns f.New as a tenant pool builder.
func (f *Factory) Builder() tenant.Builder[*Instance] {
	return f.New
}

// New builds the instance for tenantID.
func (f *Factory) New(ctx context.Context, tenantID string) (*Instance, error) {
	if err := tenant.ValidateID(tenantID); err != nil {
		return nil, err
	}

	ws, err := f.Workspace(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	session, err := f.connector.Connect(ctx, ws)
	if err != nil {
		return nil, fmt.Errorf("connect workspace for tenant %s: %w", tenantID, err)
	}

	f.logger.Info("tenant instance built",
		"tenant_id", tenantID,
		"working_dir", ws.WorkingDir,
	)
	return &Instance{ws: ws, session: session, createdAt: f.now()}, nil
}

// Workspace resolves the tenant's merged configuration and guarded callers
// without connecting to the engine.
func (f *Factory) Workspace(ctx context.Context, tenantID string) (*Workspace, error) {
	var s *settings.Settings
	if f.store != nil {
		var err error
		s, err = f.store.Get(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("load settings for tenant %s: %w", tenantID, err)
		}
	}

	merged := settings.Merge(&f.upstreams, s)
	ws := &Workspace{
		TenantID:   tenantID,
		WorkingDir: filepath.Join(f.workingDir, tenantID),
		Upstreams:  merged,
		Callers:    make(map[string]*upstream.Guarded),
	}

	for _, u := range ws.Upstreams.Each() {
		gate := f.registry.Gate(u.Name, limits.FromUpstream(u.Config))
		caller := upstream.NewHTTPCaller(u.Name, u.Config, f.httpOpts...)
		ws.Callers[u.Name] = upstream.NewGuarded(gate, caller, f.estimators[u.Name])
	}

	if s != nil {
		f.logger.Debug("tenant settings applied", "tenant_id", tenantID)
	}
	return ws, nil
}

// DefaultEstimators returns the token estimator for each service. Chat and
// OCR calls reserve their completion budget up front; parsing is billed per
// request.
func DefaultEstimators(u *config.UpstreamsConfig) map[string]upstream.Estimator {
	return map[string]upstream.Estimator{
		config.ServiceLLM:       upstream.NewCharEstimator(upstream.DefaultCharsPerToken, 500),
		config.ServiceEmbedding: upstream.NewCharEstimator(upstream.DefaultCharsPerToken, 0),
		config.ServiceRerank:    upstream.NewCharEstimator(upstream.DefaultCharsPerToken, 0),
		config.ServiceOCR:       upstream.Fixed(max(u.OCR.MaxTokens, 0)),
		config.ServiceMinerU:    upstream.Fixed(0),
	}
}
