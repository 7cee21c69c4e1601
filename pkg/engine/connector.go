package engine

import (
	"context"
	"encoding/json"
)

// QueryRequest is a retrieval question for the engine.
type QueryRequest struct {
	Query string `json:"query"`

	// Mode is the retrieval mode, e.g. "hybrid", "local", "global", "naive".
	Mode string `json:"mode,omitempty"`

	TopK int `json:"top_k,omitempty"`

	// OnlyNeedContext returns the retrieved context without generation.
	OnlyNeedContext bool `json:"only_need_context,omitempty"`
}

// InsertRequest adds text to the tenant's knowledge graph.
type InsertRequest struct {
	Text string `json:"text"`

	// Source names the document the text came from.
	Source string `json:"file_source,omitempty"`
}

// Session is a live connection to the engine for one workspace.
type Session interface {
	Query(ctx context.Context, req QueryRequest) (json.RawMessage, error)
	InsertText(ctx context.Context, req InsertRequest) (json.RawMessage, error)
	DeleteDocument(ctx context.Context, docID string) error
}

// Connector performs the remote initialization of a workspace.
type Connector interface {
	Connect(ctx context.Context, ws *Workspace) (Session, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, ws *Workspace) (Session, error)

// Connect implements Connector.
func (f ConnectorFunc) Connect(ctx context.Context, ws *Workspace) (Session, error) {
	return f(ctx, ws)
}
