package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/tenant"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func TestFileStore_RoundTrip(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	got, err := store.Get(ctx, "acme")
	if err != nil || got != nil {
		t.Fatalf("Expected (nil, nil) for missing tenant, got (%v, %v)", got, err)
	}

	s := &Settings{TenantID: "acme", LLM: &UpstreamOverride{Model: ptr("m1")}}
	if err := store.Put(ctx, s); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if s.CreatedAt.IsZero() || s.UpdatedAt.IsZero() {
		t.Error("Expected timestamps to be stamped")
	}

	got, err = store.Get(ctx, "acme")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.LLM == nil || *got.LLM.Model != "m1" {
		t.Fatalf("Expected stored override, got %+v", got)
	}
	created := got.CreatedAt

	store.now = func() time.Time { return created.Add(time.Hour) }
	if err := store.Put(ctx, &Settings{TenantID: "acme"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, _ = store.Get(ctx, "acme")
	if !got.CreatedAt.Equal(created) {
		t.Errorf("Expected CreatedAt %v preserved, got %v", created, got.CreatedAt)
	}
	if !got.UpdatedAt.After(created) {
		t.Errorf("Expected UpdatedAt after %v, got %v", created, got.UpdatedAt)
	}
	if got.LLM != nil {
		t.Error("Expected Put to replace the document")
	}
}

func TestFileStore_ListAndDelete(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	for _, id := range []string{"bbb", "aaa"} {
		if err := store.Put(ctx, &Settings{TenantID: id}); err != nil {
			t.Fatalf("Put(%s): %v", id, err)
		}
	}
	// Ignored: wrong extension and hidden temp file.
	os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(store.Dir(), ".ccc-1.tmp"), []byte("x"), 0o644)

	ids, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"aaa", "bbb"}) {
		t.Errorf("Expected [aaa bbb], got %v", ids)
	}

	ok, err := store.Delete(ctx, "aaa")
	if err != nil || !ok {
		t.Fatalf("Expected delete to succeed, got (%v, %v)", ok, err)
	}
	ok, err = store.Delete(ctx, "aaa")
	if err != nil || ok {
		t.Errorf("Expected second delete to report false, got (%v, %v)", ok, err)
	}
}

func TestFileStore_InvalidTenant(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "../etc"); !errors.Is(err, tenant.ErrInvalidTenant) {
		t.Errorf("Expected ErrInvalidTenant, got %v", err)
	}
	if err := store.Put(ctx, &Settings{}); !errors.Is(err, ErrMissingTenantID) {
		t.Errorf("Expected ErrMissingTenantID, got %v", err)
	}
}

func TestTenantIDFromPath(t *testing.T) {
	tests := []struct {
		path string
		id   string
		ok   bool
	}{
		{"/data/acme.yaml", "acme", true},
		{"acme.yml", "", false},
		{".acme.yaml", "", false},
		{"ab.yaml", "", false},
		{"bad id.yaml", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			id, ok := TenantIDFromPath(tt.path)
			if id != tt.id || ok != tt.ok {
				t.Errorf("Expected (%q, %v), got (%q, %v)", tt.id, tt.ok, id, ok)
			}
		})
	}
}
