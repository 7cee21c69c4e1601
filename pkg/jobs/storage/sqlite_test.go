package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/jobs"
)

// newTestSQLite creates a backend in a temporary directory.
func newTestSQLite(t *testing.T, clock func() time.Time) *SQLite {
	t.Helper()
	s, err := NewSQLite(SQLiteConfig{
		Path:  filepath.Join(t.TempDir(), "jobs.db"),
		Clock: clock,
	})
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_Backend(t *testing.T) {
	runBackendSuite(t, newTestSQLite(t, nil))
}

func TestSQLite_Expiry(t *testing.T) {
	clock := newFakeClock()
	runExpirySuite(t, newTestSQLite(t, clock.Now), clock)
}

func TestSQLite_EmptyPath(t *testing.T) {
	if _, err := NewSQLite(SQLiteConfig{}); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestSQLite_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "jobs.db")
	ctx := context.Background()

	s, err := NewSQLite(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	if err := s.PutJob(ctx, testJob("tenant-a", "job-1", jobs.StatusProcessing), time.Hour); err != nil {
		t.Fatalf("PutJob failed: %v", err)
	}
	if _, _, err := s.ClaimSubject(ctx, "tenant-a", "doc-1", "job-1", time.Hour); err != nil {
		t.Fatalf("ClaimSubject failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLite(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetJob(ctx, "tenant-a", "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got == nil || got.Status != jobs.StatusProcessing {
		t.Fatalf("Expected persisted processing job, got %+v", got)
	}
	holder, err := reopened.SubjectHolder(ctx, "tenant-a", "doc-1")
	if err != nil {
		t.Fatalf("SubjectHolder failed: %v", err)
	}
	if holder != "job-1" {
		t.Errorf("Expected persisted claim held by job-1, got %q", holder)
	}
}

func TestSQLite_CloseIdempotent(t *testing.T) {
	s, err := NewSQLite(SQLiteConfig{Path: filepath.Join(t.TempDir(), "jobs.db")})
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
