package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/telemetry/tracing"
)

// Engine server routes.
const (
	healthPath = "/health"
	queryPath  = "/query"
	insertPath = "/documents/text"
	deletePath = "/documents/delete_document"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4 << 10

// ErrNotConfigured is returned by sessions from NopConnector.
var ErrNotConfigured = errors.New("engine base_url not configured")

// HTTPConnector connects workspaces to a knowledge-graph engine server.
// The tenant's workspace travels in a header on every call.
type HTTPConnector struct {
	baseURL string
	apiKey  string
	header  string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPConnector creates a connector from the engine configuration. A nil
// client uses one with cfg.Timeout.
func NewHTTPConnector(cfg *config.EngineConfig, client *http.Client, logger *slog.Logger) *HTTPConnector {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	header := cfg.WorkspaceHeader
	if header == "" {
		header = config.DefaultEngineWorkspaceHeader
	}
	return &HTTPConnector{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		header:  header,
		client:  client,
		logger:  logger.With("component", "engine.http"),
	}
}

// Connect probes the engine's health endpoint for the workspace.
func (c *HTTPConnector) Connect(ctx context.Context, ws *Workspace) (Session, error) {
	s := &httpSession{conn: c, tenantID: ws.TenantID}
	if _, err := s.do(ctx, http.MethodGet, healthPath, "health", nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	c.logger.Debug("engine workspace connected", "tenant_id", ws.TenantID)
	return s, nil
}

type httpSession struct {
	conn     *HTTPConnector
	tenantID string
}

func (s *httpSession) Query(ctx context.Context, req QueryRequest) (json.RawMessage, error) {
	return s.do(ctx, http.MethodPost, queryPath, "query", req)
}

func (s *httpSession) InsertText(ctx context.Context, req InsertRequest) (json.RawMessage, error) {
	return s.do(ctx, http.MethodPost, insertPath, "insert", req)
}

func (s *httpSession) DeleteDocument(ctx context.Context, docID string) error {
	_, err := s.do(ctx, http.MethodDelete, deletePath, "delete", map[string]any{
		"doc_ids": []string{docID},
	})
	return err
}

func (s *httpSession) do(ctx context.Context, method, path, op string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.conn.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set(s.conn.header, s.tenantID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.conn.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.conn.apiKey)
	}
	tracing.Inject(ctx, req.Header)

	resp, err := s.conn.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine %s for tenant %s: %w", op, s.tenantID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &RequestError{
			TenantID:   s.tenantID,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("engine %s for tenant %s: read response: %w", op, s.tenantID, err)
	}
	return json.RawMessage(data), nil
}

// NopConnector connects without a remote engine. Sessions it returns fail
// every operation with ErrNotConfigured, while the workspace's upstream
// callers remain usable.
type NopConnector struct{}

// Connect implements Connector.
func (NopConnector) Connect(ctx context.Context, ws *Workspace) (Session, error) {
	return nopSession{}, nil
}

type nopSession struct{}

func (nopSession) Query(context.Context, QueryRequest) (json.RawMessage, error) {
	return nil, ErrNotConfigured
}

func (nopSession) InsertText(context.Context, InsertRequest) (json.RawMessage, error) {
	return nil, ErrNotConfigured
}

func (nopSession) DeleteDocument(context.Context, string) error {
	return ErrNotConfigured
}
