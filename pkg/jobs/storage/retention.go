package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Cleaner removes expired records. *jobs.Store satisfies it.
type Cleaner interface {
	Cleanup(ctx context.Context) (int, error)
}

// Scheduler runs Cleanup on a cron schedule.
type Scheduler struct {
	cleaner  Cleaner
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a retention scheduler. An empty schedule disables it.
func NewScheduler(cleaner Cleaner, schedule string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cleaner:  cleaner,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "jobs.retention"),
	}
}

// Start schedules cleanup runs and stops them when ctx is done.
//
// Common expressions:
//   - "*/10 * * * *" - Every 10 minutes
//   - "0 * * * *"    - Hourly
//   - "0 3 * * *"    - Daily at 3 AM
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("cleanup schedule not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("retention scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunOnce performs one cleanup pass and returns the number of records removed.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	removed, err := s.cleaner.Cleanup(ctx)
	if err != nil {
		s.logger.Error("scheduled cleanup failed", "error", err)
		return removed
	}
	if removed > 0 {
		s.logger.Info("scheduled cleanup completed", "removed", removed)
	} else {
		s.logger.Debug("scheduled cleanup completed, nothing expired")
	}
	return removed
}

// Stop stops the scheduler and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("retention scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled cleanup, or nil when not scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
