package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"mercator-hq/saturn/internal/upstreamtest"
	"mercator-hq/saturn/pkg/config"
)

func TestHTTPConnector_Session(t *testing.T) {
	srv := upstreamtest.NewServer()
	defer srv.Close()
	srv.Handle(healthPath, upstreamtest.JSON(map[string]string{"status": "healthy"}))
	srv.Handle(queryPath, upstreamtest.JSON(map[string]string{"response": "answer"}))
	srv.Handle(insertPath, upstreamtest.JSON(map[string]string{"status": "success"}))
	srv.Handle(deletePath, upstreamtest.JSON(map[string]string{"status": "deleted"}))

	conn := NewHTTPConnector(&config.EngineConfig{
		BaseURL:         srv.URL() + "/",
		APIKey:          "engine-key",
		Timeout:         time.Second,
		WorkspaceHeader: "X-Workspace",
	}, nil, nil)

	ctx := context.Background()
	session, err := conn.Connect(ctx, &Workspace{TenantID: "acme"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	raw, err := session.Query(ctx, QueryRequest{Query: "what?", Mode: "hybrid"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	var out map[string]string
	if err := json.Unmarshal(raw, &out); err != nil || out["response"] != "answer" {
		t.Errorf("Expected answer, got %s (%v)", raw, err)
	}

	if _, err := session.InsertText(ctx, InsertRequest{Text: "hello", Source: "a.txt"}); err != nil {
		t.Fatalf("InsertText: %v", err)
	}
	if err := session.DeleteDocument(ctx, "doc-1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	reqs := srv.Requests()
	if len(reqs) != 4 {
		t.Fatalf("Expected 4 requests, got %d", len(reqs))
	}
	for _, r := range reqs {
		if got := r.Header.Get("X-Workspace"); got != "acme" {
			t.Errorf("%s %s: expected workspace header acme, got %q", r.Method, r.Path, got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer engine-key" {
			t.Errorf("%s %s: expected bearer auth, got %q", r.Method, r.Path, got)
		}
	}
	if reqs[3].Method != http.MethodDelete {
		t.Errorf("Expected DELETE for document removal, got %s", reqs[3].Method)
	}

	var del struct {
		DocIDs []string `json:"doc_ids"`
	}
	if err := json.Unmarshal(reqs[3].Body, &del); err != nil || len(del.DocIDs) != 1 || del.DocIDs[0] != "doc-1" {
		t.Errorf("Expected doc_ids [doc-1], got %s", reqs[3].Body)
	}
}

func TestHTTPConnector_RequestError(t *testing.T) {
	srv := upstreamtest.NewServer()
	defer srv.Close()
	srv.Handle(healthPath, upstreamtest.JSON(map[string]string{"status": "healthy"}))
	srv.Handle(queryPath, upstreamtest.ErrorResponse(http.StatusBadRequest, "bad mode"))

	conn := NewHTTPConnector(&config.EngineConfig{BaseURL: srv.URL(), Timeout: time.Second}, nil, nil)
	session, err := conn.Connect(context.Background(), &Workspace{TenantID: "acme"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	_, err = session.Query(context.Background(), QueryRequest{Query: "q", Mode: "nope"})
	var re *RequestError
	if !errors.As(err, &re) {
		t.Fatalf("Expected RequestError, got %T: %v", err, err)
	}
	if re.StatusCode != http.StatusBadRequest || re.Operation != "query" {
		t.Errorf("Expected query/400, got %s/%d", re.Operation, re.StatusCode)
	}
	if got := srv.Requests()[0].Header.Get(config.DefaultEngineWorkspaceHeader); got != "acme" {
		t.Errorf("Expected default workspace header, got %q", got)
	}
}
