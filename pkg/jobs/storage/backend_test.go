package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/jobs"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testJob(tenantID, jobID string, status jobs.Status) *jobs.Job {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return &jobs.Job{
		ID:        jobID,
		TenantID:  tenantID,
		Status:    status,
		Operation: "upload",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// runBackendSuite exercises the jobs.Backend contract on b.
func runBackendSuite(t *testing.T, b jobs.Backend) {
	ctx := context.Background()

	t.Run("insert if absent", func(t *testing.T) {
		j := testJob("tenant-i", "job-1", jobs.StatusPending)
		ok, err := b.InsertJob(ctx, j, time.Hour)
		if err != nil || !ok {
			t.Fatalf("Expected first insert to succeed, got ok=%v err=%v", ok, err)
		}

		other := testJob("tenant-i", "job-1", jobs.StatusProcessing)
		ok, err = b.InsertJob(ctx, other, time.Hour)
		if err != nil {
			t.Fatalf("InsertJob failed: %v", err)
		}
		if ok {
			t.Error("Expected second insert with the same id to be refused")
		}

		got, err := b.GetJob(ctx, "tenant-i", "job-1")
		if err != nil {
			t.Fatalf("GetJob failed: %v", err)
		}
		if got == nil || got.Status != jobs.StatusPending {
			t.Errorf("Expected original job kept, got %+v", got)
		}
		list, err := b.ListJobs(ctx, "tenant-i")
		if err != nil {
			t.Fatalf("ListJobs failed: %v", err)
		}
		if len(list) != 1 {
			t.Errorf("Expected inserted job indexed, got %d jobs", len(list))
		}
	})

	t.Run("job round trip", func(t *testing.T) {
		j := testJob("tenant-a", "job-1", jobs.StatusPending)
		j.SubjectID = "doc-1"
		j.Result = []byte(`{"chunks":3}`)
		if err := b.PutJob(ctx, j, time.Hour); err != nil {
			t.Fatalf("PutJob failed: %v", err)
		}

		got, err := b.GetJob(ctx, "tenant-a", "job-1")
		if err != nil {
			t.Fatalf("GetJob failed: %v", err)
		}
		if got == nil {
			t.Fatal("Expected job, got nil")
		}
		if got.Status != jobs.StatusPending {
			t.Errorf("Expected status pending, got %s", got.Status)
		}
		if got.SubjectID != "doc-1" {
			t.Errorf("Expected subject doc-1, got %s", got.SubjectID)
		}
		if string(got.Result) != `{"chunks":3}` {
			t.Errorf("Expected result to round trip, got %s", got.Result)
		}
	})

	t.Run("absent job is nil", func(t *testing.T) {
		got, err := b.GetJob(ctx, "tenant-a", "missing")
		if err != nil {
			t.Fatalf("GetJob failed: %v", err)
		}
		if got != nil {
			t.Errorf("Expected nil, got %+v", got)
		}
	})

	t.Run("tenant isolation", func(t *testing.T) {
		if err := b.PutJob(ctx, testJob("tenant-b", "job-shared", jobs.StatusPending), time.Hour); err != nil {
			t.Fatalf("PutJob failed: %v", err)
		}
		got, err := b.GetJob(ctx, "tenant-c", "job-shared")
		if err != nil {
			t.Fatalf("GetJob failed: %v", err)
		}
		if got != nil {
			t.Error("Expected job to be invisible to another tenant")
		}
		list, err := b.ListJobs(ctx, "tenant-c")
		if err != nil {
			t.Fatalf("ListJobs failed: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("Expected no jobs for tenant-c, got %d", len(list))
		}
	})

	t.Run("list and delete", func(t *testing.T) {
		for _, id := range []string{"l-1", "l-2", "l-3"} {
			if err := b.PutJob(ctx, testJob("tenant-list", id, jobs.StatusPending), time.Hour); err != nil {
				t.Fatalf("PutJob failed: %v", err)
			}
		}
		list, err := b.ListJobs(ctx, "tenant-list")
		if err != nil {
			t.Fatalf("ListJobs failed: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("Expected 3 jobs, got %d", len(list))
		}

		existed, err := b.DeleteJob(ctx, "tenant-list", "l-2")
		if err != nil {
			t.Fatalf("DeleteJob failed: %v", err)
		}
		if !existed {
			t.Error("Expected DeleteJob to report existing job")
		}
		existed, err = b.DeleteJob(ctx, "tenant-list", "l-2")
		if err != nil {
			t.Fatalf("DeleteJob failed: %v", err)
		}
		if existed {
			t.Error("Expected second DeleteJob to report absent job")
		}

		list, err = b.ListJobs(ctx, "tenant-list")
		if err != nil {
			t.Fatalf("ListJobs failed: %v", err)
		}
		if len(list) != 2 {
			t.Errorf("Expected 2 jobs after delete, got %d", len(list))
		}
	})

	t.Run("put replaces", func(t *testing.T) {
		j := testJob("tenant-r", "job-r", jobs.StatusPending)
		if err := b.PutJob(ctx, j, time.Hour); err != nil {
			t.Fatalf("PutJob failed: %v", err)
		}
		j.Status = jobs.StatusProcessing
		j.Label = "parsing"
		if err := b.PutJob(ctx, j, time.Hour); err != nil {
			t.Fatalf("PutJob failed: %v", err)
		}
		got, err := b.GetJob(ctx, "tenant-r", "job-r")
		if err != nil {
			t.Fatalf("GetJob failed: %v", err)
		}
		if got.Status != jobs.StatusProcessing || got.Label != "parsing" {
			t.Errorf("Expected replaced job, got status=%s label=%s", got.Status, got.Label)
		}
		list, _ := b.ListJobs(ctx, "tenant-r")
		if len(list) != 1 {
			t.Errorf("Expected 1 indexed job, got %d", len(list))
		}
	})

	t.Run("batches", func(t *testing.T) {
		for _, id := range []string{"batch-2", "batch-1"} {
			err := b.PutBatch(ctx, &jobs.Batch{
				ID:        id,
				TenantID:  "tenant-batch",
				JobIDs:    []string{"a", "b"},
				Total:     2,
				CreatedAt: time.Now().UTC(),
			}, time.Hour)
			if err != nil {
				t.Fatalf("PutBatch failed: %v", err)
			}
		}

		got, err := b.GetBatch(ctx, "tenant-batch", "batch-1")
		if err != nil {
			t.Fatalf("GetBatch failed: %v", err)
		}
		if got == nil || got.Total != 2 || len(got.JobIDs) != 2 {
			t.Fatalf("Expected batch with 2 jobs, got %+v", got)
		}

		ids, err := b.ListBatches(ctx, "tenant-batch")
		if err != nil {
			t.Fatalf("ListBatches failed: %v", err)
		}
		if len(ids) != 2 || ids[0] != "batch-1" || ids[1] != "batch-2" {
			t.Errorf("Expected sorted [batch-1 batch-2], got %v", ids)
		}

		missing, err := b.GetBatch(ctx, "other-tenant", "batch-1")
		if err != nil {
			t.Fatalf("GetBatch failed: %v", err)
		}
		if missing != nil {
			t.Error("Expected batch to be invisible to another tenant")
		}
	})

	t.Run("subject claims", func(t *testing.T) {
		holder, ok, err := b.ClaimSubject(ctx, "tenant-s", "doc-9", "job-a", time.Hour)
		if err != nil {
			t.Fatalf("ClaimSubject failed: %v", err)
		}
		if !ok || holder != "job-a" {
			t.Fatalf("Expected job-a to take the claim, got holder=%s ok=%v", holder, ok)
		}

		holder, ok, err = b.ClaimSubject(ctx, "tenant-s", "doc-9", "job-b", time.Hour)
		if err != nil {
			t.Fatalf("ClaimSubject failed: %v", err)
		}
		if ok || holder != "job-a" {
			t.Errorf("Expected claim held by job-a, got holder=%s ok=%v", holder, ok)
		}

		// Same subject under another tenant is independent.
		_, ok, err = b.ClaimSubject(ctx, "tenant-t", "doc-9", "job-c", time.Hour)
		if err != nil {
			t.Fatalf("ClaimSubject failed: %v", err)
		}
		if !ok {
			t.Error("Expected claim in another tenant to succeed")
		}

		// Release by a non-holder is ignored.
		if err := b.ReleaseSubject(ctx, "tenant-s", "doc-9", "job-b"); err != nil {
			t.Fatalf("ReleaseSubject failed: %v", err)
		}
		holder, err = b.SubjectHolder(ctx, "tenant-s", "doc-9")
		if err != nil {
			t.Fatalf("SubjectHolder failed: %v", err)
		}
		if holder != "job-a" {
			t.Errorf("Expected holder job-a after foreign release, got %q", holder)
		}

		if err := b.ReleaseSubject(ctx, "tenant-s", "doc-9", "job-a"); err != nil {
			t.Fatalf("ReleaseSubject failed: %v", err)
		}
		holder, err = b.SubjectHolder(ctx, "tenant-s", "doc-9")
		if err != nil {
			t.Fatalf("SubjectHolder failed: %v", err)
		}
		if holder != "" {
			t.Errorf("Expected no holder after release, got %q", holder)
		}
	})

	t.Run("ping", func(t *testing.T) {
		if err := b.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})
}

// runExpirySuite checks TTL handling on a backend driven by clock.
func runExpirySuite(t *testing.T, b jobs.Backend, clock *fakeClock) {
	ctx := context.Background()

	if err := b.PutJob(ctx, testJob("tenant-x", "short", jobs.StatusCompleted), time.Minute); err != nil {
		t.Fatalf("PutJob failed: %v", err)
	}
	if err := b.PutJob(ctx, testJob("tenant-x", "long", jobs.StatusPending), time.Hour); err != nil {
		t.Fatalf("PutJob failed: %v", err)
	}
	if err := b.PutBatch(ctx, &jobs.Batch{ID: "b", TenantID: "tenant-x", Total: 0}, time.Minute); err != nil {
		t.Fatalf("PutBatch failed: %v", err)
	}
	if _, _, err := b.ClaimSubject(ctx, "tenant-x", "doc", "short", time.Minute); err != nil {
		t.Fatalf("ClaimSubject failed: %v", err)
	}
	if err := b.PutJob(ctx, testJob("tenant-y", "reused", jobs.StatusCompleted), time.Minute); err != nil {
		t.Fatalf("PutJob failed: %v", err)
	}

	clock.Advance(2 * time.Minute)

	// An expired id may be inserted again.
	ok, err := b.InsertJob(ctx, testJob("tenant-y", "reused", jobs.StatusPending), time.Hour)
	if err != nil || !ok {
		t.Fatalf("Expected insert over expired job, got ok=%v err=%v", ok, err)
	}

	got, err := b.GetJob(ctx, "tenant-x", "short")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got != nil {
		t.Error("Expected expired job to be invisible")
	}
	list, err := b.ListJobs(ctx, "tenant-x")
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "long" {
		t.Errorf("Expected only the long-lived job, got %d jobs", len(list))
	}
	batch, err := b.GetBatch(ctx, "tenant-x", "b")
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if batch != nil {
		t.Error("Expected expired batch to be invisible")
	}

	// An expired claim can be taken by a new job.
	holder, ok, err := b.ClaimSubject(ctx, "tenant-x", "doc", "next", time.Minute)
	if err != nil {
		t.Fatalf("ClaimSubject failed: %v", err)
	}
	if !ok || holder != "next" {
		t.Errorf("Expected expired claim to be replaced, got holder=%s ok=%v", holder, ok)
	}

	removed, err := b.Cleanup(ctx, clock.Now())
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 records removed (job and batch), got %d", removed)
	}

	// A claim renewed by its holder outlives the original ttl.
	if _, _, err := b.ClaimSubject(ctx, "tenant-x", "renewed", "holder", time.Minute); err != nil {
		t.Fatalf("ClaimSubject failed: %v", err)
	}
	clock.Advance(40 * time.Second)
	if _, ok, err := b.ClaimSubject(ctx, "tenant-x", "renewed", "holder", time.Minute); err != nil || !ok {
		t.Fatalf("Expected holder to renew its claim, got ok=%v err=%v", ok, err)
	}
	clock.Advance(40 * time.Second)
	holder, err = b.SubjectHolder(ctx, "tenant-x", "renewed")
	if err != nil {
		t.Fatalf("SubjectHolder failed: %v", err)
	}
	if holder != "holder" {
		t.Errorf("Expected renewed claim to survive, got holder=%q", holder)
	}
}
