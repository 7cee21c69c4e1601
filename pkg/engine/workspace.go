package engine

import (
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/upstream"
)

// Workspace is everything an engine connection needs for one tenant.
type Workspace struct {
	// TenantID doubles as the engine workspace name.
	TenantID string

	// WorkingDir is the engine's local working directory.
	WorkingDir string

	// Upstreams is the tenant's merged upstream configuration.
	Upstreams config.UpstreamsConfig

	// Callers holds one gate-guarded caller per upstream service.
	Callers map[string]*upstream.Guarded
}

// Caller returns the guarded caller for service, or nil.
func (w *Workspace) Caller(service string) *upstream.Guarded {
	return w.Callers[service]
}
