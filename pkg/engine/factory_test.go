package engine

import (
	"context"
	"errors"
	"testing"

	"mercator-hq/saturn/internal/upstreamtest"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/limits"
	"mercator-hq/saturn/pkg/tenant"
	"mercator-hq/saturn/pkg/tenant/settings"
)

func intPtr(v int) *int { return &v }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Pool.WorkingDir = t.TempDir()
	cfg.Engine.BaseURL = ""
	return cfg
}

func newSettingsStore(t *testing.T) *settings.FileStore {
	t.Helper()
	store, err := settings.NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func TestFactory_SharesGatesForIdenticalLimits(t *testing.T) {
	cfg := testConfig(t)
	registry := limits.NewRegistry(limits.RegistryConfig{})
	f := NewFactory(cfg, registry)
	ctx := context.Background()

	a, err := f.New(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("New(tenant-a): %v", err)
	}
	b, err := f.New(ctx, "tenant-b")
	if err != nil {
		t.Fatalf("New(tenant-b): %v", err)
	}

	for _, svc := range []string{config.ServiceLLM, config.ServiceEmbedding, config.ServiceRerank, config.ServiceOCR, config.ServiceMinerU} {
		ga, gb := a.Upstream(svc), b.Upstream(svc)
		if ga == nil || gb == nil {
			t.Fatalf("Expected a caller for %s", svc)
		}
		if ga.Gate() != gb.Gate() {
			t.Errorf("Expected tenants with identical limits to share the %s gate", svc)
		}
	}
	if registry.Len() != 5 {
		t.Errorf("Expected 5 gates, got %d", registry.Len())
	}
}

func TestFactory_TenantOverrideGetsOwnGate(t *testing.T) {
	cfg := testConfig(t)
	store := newSettingsStore(t)
	ctx := context.Background()

	err := store.Put(ctx, &settings.Settings{
		TenantID: "vip",
		LLM:      &settings.UpstreamOverride{MaxConcurrent: intPtr(9), RequestsPerMinute: intPtr(100)},
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	registry := limits.NewRegistry(limits.RegistryConfig{})
	f := NewFactory(cfg, registry, WithSettingsStore(store))

	vip, err := f.New(ctx, "vip")
	if err != nil {
		t.Fatalf("New(vip): %v", err)
	}
	std, err := f.New(ctx, "standard")
	if err != nil {
		t.Fatalf("New(standard): %v", err)
	}

	vipGate := vip.Upstream(config.ServiceLLM).Gate()
	if vipGate == std.Upstream(config.ServiceLLM).Gate() {
		t.Fatal("Expected distinct LLM gates for distinct overrides")
	}
	if got := vipGate.Config().Concurrency; got != 9 {
		t.Errorf("Expected override concurrency 9, got %d", got)
	}
	if got := vipGate.Config().RPM; got != 100 {
		t.Errorf("Expected override rpm 100, got %d", got)
	}
	if vip.Upstream(config.ServiceEmbedding).Gate() != std.Upstream(config.ServiceEmbedding).Gate() {
		t.Error("Expected unchanged services to keep sharing gates")
	}
	if vip.Workspace().Upstreams.LLM.RequestsPerMinute != 100 {
		t.Errorf("Expected merged rpm in workspace, got %d", vip.Workspace().Upstreams.LLM.RequestsPerMinute)
	}
}

func TestFactory_InvalidTenant(t *testing.T) {
	f := NewFactory(testConfig(t), limits.NewRegistry(limits.RegistryConfig{}))
	if _, err := f.New(context.Background(), "no spaces"); !errors.Is(err, tenant.ErrInvalidTenant) {
		t.Errorf("Expected ErrInvalidTenant, got %v", err)
	}
}

func TestFactory_ConnectFailure(t *testing.T) {
	srv := upstreamtest.NewServer()
	defer srv.Close()
	srv.Handle(healthPath, upstreamtest.ServerError())

	cfg := testConfig(t)
	cfg.Engine.BaseURL = srv.URL()
	f := NewFactory(cfg, limits.NewRegistry(limits.RegistryConfig{}))

	_, err := f.New(context.Background(), "acme")
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("Expected ErrEngineUnavailable, got %v", err)
	}
}

func TestFactory_PoolBuilder(t *testing.T) {
	f := NewFactory(testConfig(t), limits.NewRegistry(limits.RegistryConfig{}))
	pool := tenant.NewPool(2, f.Builder())

	first, err := pool.GetOrCreate(context.Background(), "acme")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	again, err := pool.GetOrCreate(context.Background(), "acme")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if first != again {
		t.Error("Expected the resident instance to be reused")
	}
	if _, err := first.Query(context.Background(), QueryRequest{Query: "q"}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured without an engine, got %v", err)
	}
}
