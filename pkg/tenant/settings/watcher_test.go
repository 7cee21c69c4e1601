package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcher_DebouncesPerTenant(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	var (
		mu     sync.Mutex
		counts = map[string]int{}
	)
	changed := make(chan string, 16)
	go w.Watch(context.Background(), func(id string) {
		mu.Lock()
		counts[id]++
		mu.Unlock()
		changed <- id
	})

	// Let the watcher register the directory.
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 5; i++ {
		os.WriteFile(filepath.Join(dir, "acme.yaml"), []byte("tenant_id: acme\n"), 0o644)
	}
	os.WriteFile(filepath.Join(dir, "globex.yaml"), []byte("tenant_id: globex\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "readme.md"), []byte("ignored"), 0o644)

	seen := map[string]bool{}
	deadline := time.After(2 * time.Second)
	for len(seen) < 2 {
		select {
		case id := <-changed:
			seen[id] = true
		case <-deadline:
			t.Fatalf("Expected callbacks for acme and globex, got %v", seen)
		}
	}

	// Allow any stray callback to land before counting.
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if counts["acme"] != 1 {
		t.Errorf("Expected one debounced callback for acme, got %d", counts["acme"])
	}
	if _, ok := counts["readme"]; ok {
		t.Error("Expected non-settings file to be ignored")
	}
}

func TestWatcher_StopIdempotent(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), 0, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Expected second Stop to be a no-op, got %v", err)
	}
	if err := w.Watch(context.Background(), func(string) {}); err != ErrWatcherRunning {
		t.Errorf("Expected ErrWatcherRunning after Stop, got %v", err)
	}
}
