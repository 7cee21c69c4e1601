package engine

import (
	"context"
	"encoding/json"
	"time"

	"mercator-hq/saturn/pkg/upstream"
)

// Instance is a tenant's engine handle.
type Instance struct {
	ws        *Workspace
	session   Session
	createdAt time.Time
}

// TenantID returns the owning tenant.
func (i *Instance) TenantID() string { return i.ws.TenantID }

// Workspace returns the workspace the instance was built from.
func (i *Instance) Workspace() *Workspace { return i.ws }

// CreatedAt returns when the instance was built.
func (i *Instance) CreatedAt() time.Time { return i.createdAt }

// Upstream returns the tenant's guarded caller for service, or nil.
func (i *Instance) Upstream(service string) *upstream.Guarded {
	return i.ws.Caller(service)
}

// Query asks the engine a question in the tenant's workspace.
func (i *Instance) Query(ctx context.Context, req QueryRequest) (json.RawMessage, error) {
	return i.session.Query(ctx, req)
}

// InsertText adds text to the tenant's knowledge graph.
func (i *Instance) InsertText(ctx context.Context, req InsertRequest) (json.RawMessage, error) {
	return i.session.InsertText(ctx, req)
}

// DeleteDocument removes a document and its derived graph data.
func (i *Instance) DeleteDocument(ctx context.Context, docID string) error {
	return i.session.DeleteDocument(ctx, docID)
}
