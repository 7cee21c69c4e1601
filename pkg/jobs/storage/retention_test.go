package storage

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/jobs"
)

type countingCleaner struct {
	calls   atomic.Int32
	removed int
	err     error
}

func (c *countingCleaner) Cleanup(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return c.removed, c.err
}

func TestScheduler_EmptyScheduleDisabled(t *testing.T) {
	s := NewScheduler(&countingCleaner{}, "", nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.IsRunning() {
		t.Error("Expected scheduler not running with empty schedule")
	}
	if s.NextRun() != nil {
		t.Error("Expected no next run")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := NewScheduler(&countingCleaner{}, "not a cron", nil)
	if err := s.Start(context.Background()); err == nil {
		t.Error("Expected error for invalid schedule")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewScheduler(&countingCleaner{}, "*/10 * * * *", nil)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("Expected scheduler running")
	}
	next := s.NextRun()
	if next == nil || !next.After(time.Now()) {
		t.Errorf("Expected a future next run, got %v", next)
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("Expected scheduler stopped")
	}
	s.Stop()
}

func TestScheduler_RunOnce(t *testing.T) {
	c := &countingCleaner{removed: 4}
	s := NewScheduler(c, "@hourly", nil)

	if got := s.RunOnce(context.Background()); got != 4 {
		t.Errorf("Expected 4 removed, got %d", got)
	}

	c.err = errors.New("disk full")
	c.removed = 0
	if got := s.RunOnce(context.Background()); got != 0 {
		t.Errorf("Expected 0 removed on error, got %d", got)
	}
	if c.calls.Load() != 2 {
		t.Errorf("Expected 2 cleanup calls, got %d", c.calls.Load())
	}
}

func TestScheduler_CleansStore(t *testing.T) {
	clock := newFakeClock()
	backend := NewMemoryWithClock(clock.Now)
	store := jobs.NewStore(backend, jobs.TTL{Active: time.Hour, Terminal: time.Minute, Batch: time.Minute}, jobs.WithClock(clock.Now))
	ctx := context.Background()

	j, err := store.CreateJob(ctx, &jobs.Job{TenantID: "tenant-a", Operation: "upload"})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if _, err := store.UpdateJob(ctx, "tenant-a", j.ID, jobs.StatusUpdate(jobs.StatusProcessing)); err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}
	if _, err := store.UpdateJob(ctx, "tenant-a", j.ID, jobs.StatusUpdate(jobs.StatusCompleted)); err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}

	clock.Advance(2 * time.Minute)

	s := NewScheduler(store, "@hourly", nil)
	if got := s.RunOnce(ctx); got != 1 {
		t.Errorf("Expected 1 record removed, got %d", got)
	}
	if backend.Size() != 0 {
		t.Errorf("Expected empty backend, got %d", backend.Size())
	}
}
