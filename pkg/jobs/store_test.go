package jobs_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/jobs"
	"mercator-hq/saturn/pkg/jobs/storage"
	"mercator-hq/saturn/pkg/tenant"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingObserver struct {
	mu         sync.Mutex
	statuses   []jobs.Status
	duplicates int
}

func (o *recordingObserver) ObserveJobStatus(s jobs.Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, s)
}

func (o *recordingObserver) ObserveDuplicateOperation() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.duplicates++
}

var testTTL = jobs.TTL{Active: time.Hour, Terminal: 24 * time.Hour, Batch: 24 * time.Hour}

func newTestStore(t *testing.T, opts ...jobs.Option) (*jobs.Store, *storage.Memory, *clock) {
	t.Helper()
	c := newClock()
	backend := storage.NewMemoryWithClock(c.Now)
	opts = append([]jobs.Option{jobs.WithClock(c.Now)}, opts...)
	return jobs.NewStore(backend, testTTL, opts...), backend, c
}

func mustCreate(t *testing.T, s *jobs.Store, j *jobs.Job) *jobs.Job {
	t.Helper()
	created, err := s.CreateJob(context.Background(), j)
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	return created
}

func mustAdvance(t *testing.T, s *jobs.Store, tenantID, jobID string, status jobs.Status) *jobs.Job {
	t.Helper()
	j, err := s.UpdateJob(context.Background(), tenantID, jobID, jobs.StatusUpdate(status))
	if err != nil {
		t.Fatalf("UpdateJob to %s failed: %v", status, err)
	}
	return j
}

func TestStore_CreateJobDefaults(t *testing.T) {
	s, _, c := newTestStore(t)

	j := mustCreate(t, s, &jobs.Job{TenantID: "tenant-a", Operation: "upload"})
	if j.ID == "" {
		t.Error("Expected generated job id")
	}
	if j.Status != jobs.StatusPending {
		t.Errorf("Expected pending, got %s", j.Status)
	}
	if !j.CreatedAt.Equal(c.Now()) || !j.UpdatedAt.Equal(c.Now()) {
		t.Errorf("Expected timestamps at %v, got created=%v updated=%v", c.Now(), j.CreatedAt, j.UpdatedAt)
	}
}

func TestStore_CreateJobValidation(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateJob(ctx, &jobs.Job{TenantID: "../etc"})
	if !errors.Is(err, tenant.ErrInvalidTenant) {
		t.Errorf("Expected ErrInvalidTenant, got %v", err)
	}

	_, err = s.CreateJob(ctx, &jobs.Job{TenantID: "tenant-a", Status: "archived"})
	if !errors.Is(err, jobs.ErrInvalidStatus) {
		t.Errorf("Expected ErrInvalidStatus, got %v", err)
	}

	mustCreate(t, s, &jobs.Job{ID: "fixed", TenantID: "tenant-a"})
	_, err = s.CreateJob(ctx, &jobs.Job{ID: "fixed", TenantID: "tenant-a"})
	if !errors.Is(err, jobs.ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}
}

func TestStore_TenantIsolation(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, &jobs.Job{ID: "job-1", TenantID: "tenant-a"})

	_, err := s.GetJob(ctx, "tenant-b", "job-1")
	if !errors.Is(err, jobs.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from another tenant, got %v", err)
	}
	_, err = s.UpdateJob(ctx, "tenant-b", "job-1", jobs.StatusUpdate(jobs.StatusProcessing))
	if !errors.Is(err, jobs.ErrNotFound) {
		t.Errorf("Expected ErrNotFound updating from another tenant, got %v", err)
	}
}

func TestStore_DuplicateOperation(t *testing.T) {
	obs := &recordingObserver{}
	s, _, _ := newTestStore(t, jobs.WithObserver(obs))
	ctx := context.Background()

	first := mustCreate(t, s, &jobs.Job{TenantID: "tenant-a", SubjectID: "doc-1", Operation: "upload"})
	mustAdvance(t, s, "tenant-a", first.ID, jobs.StatusProcessing)

	_, err := s.CreateJob(ctx, &jobs.Job{TenantID: "tenant-a", SubjectID: "doc-1", Operation: "delete"})
	if !errors.Is(err, jobs.ErrDuplicateOperation) {
		t.Fatalf("Expected ErrDuplicateOperation, got %v", err)
	}
	var dup *jobs.DuplicateOperationError
	if !errors.As(err, &dup) {
		t.Fatalf("Expected *DuplicateOperationError, got %T", err)
	}
	if dup.JobID != first.ID || dup.Status != jobs.StatusProcessing || dup.Operation != "upload" {
		t.Errorf("Expected conflict with %s (processing upload), got %+v", first.ID, dup)
	}
	if obs.duplicates != 1 {
		t.Errorf("Expected 1 duplicate observed, got %d", obs.duplicates)
	}

	// Another tenant may work on the same subject.
	mustCreate(t, s, &jobs.Job{TenantID: "tenant-b", SubjectID: "doc-1"})

	// Once the first job ends the subject is free again.
	mustAdvance(t, s, "tenant-a", first.ID, jobs.StatusCompleted)
	mustCreate(t, s, &jobs.Job{TenantID: "tenant-a", SubjectID: "doc-1", Operation: "delete"})
}

func TestStore_DuplicateOperationConcurrent(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	const workers = 16
	var created, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateJob(ctx, &jobs.Job{TenantID: "tenant-a", SubjectID: "doc-1"})
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, jobs.ErrDuplicateOperation):
				rejected.Add(1)
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Errorf("Expected exactly 1 job created, got %d", created.Load())
	}
	if rejected.Load() != workers-1 {
		t.Errorf("Expected %d rejections, got %d", workers-1, rejected.Load())
	}
}

func TestStore_ClaimOutlivesActiveTTL(t *testing.T) {
	s, _, c := newTestStore(t)
	ctx := context.Background()

	first := mustCreate(t, s, &jobs.Job{TenantID: "tenant-a", SubjectID: "doc-1", Operation: "delete"})
	mustAdvance(t, s, "tenant-a", first.ID, jobs.StatusDeleting)

	// Three updates 30 minutes apart carry the job well past testTTL.Active.
	for i, label := range []string{"chunks", "vectors", "graph"} {
		c.Advance(30 * time.Minute)
		if _, err := s.UpdateJob(ctx, "tenant-a", first.ID, jobs.Update{Label: &label}); err != nil {
			t.Fatalf("update %d failed: %v", i, err)
		}
	}

	active, err := s.ActiveJobForSubject(ctx, "tenant-a", "doc-1")
	if err != nil {
		t.Fatalf("ActiveJobForSubject failed: %v", err)
	}
	if active == nil || active.ID != first.ID {
		t.Fatalf("Expected %s to still hold doc-1, got %+v", first.ID, active)
	}

	_, err = s.CreateJob(ctx, &jobs.Job{TenantID: "tenant-a", SubjectID: "doc-1", Operation: "delete"})
	var dup *jobs.DuplicateOperationError
	if !errors.As(err, &dup) || dup.JobID != first.ID {
		t.Errorf("Expected duplicate rejection against %s, got %v", first.ID, err)
	}
}

func TestStore_CreateJobSameIDConcurrent(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	const workers = 16
	var created, exists atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateJob(ctx, &jobs.Job{ID: "fixed", TenantID: "tenant-a"})
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, jobs.ErrAlreadyExists):
				exists.Add(1)
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Errorf("Expected exactly 1 job created, got %d", created.Load())
	}
	if exists.Load() != workers-1 {
		t.Errorf("Expected %d ErrAlreadyExists, got %d", workers-1, exists.Load())
	}
}

func TestStore_StaleClaimTakeover(t *testing.T) {
	s, backend, _ := newTestStore(t)
	ctx := context.Background()

	// A claim left behind by a job that no longer exists.
	if _, _, err := backend.ClaimSubject(ctx, "tenant-a", "doc-1", "ghost", time.Hour); err != nil {
		t.Fatalf("ClaimSubject failed: %v", err)
	}

	j := mustCreate(t, s, &jobs.Job{TenantID: "tenant-a", SubjectID: "doc-1"})

	holder, err := backend.SubjectHolder(ctx, "tenant-a", "doc-1")
	if err != nil {
		t.Fatalf("SubjectHolder failed: %v", err)
	}
	if holder != j.ID {
		t.Errorf("Expected claim taken over by %s, got %s", j.ID, holder)
	}
}

func TestStore_TerminalStateIsFinal(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	for _, terminal := range []jobs.Status{jobs.StatusCompleted, jobs.StatusFailed} {
		t.Run(string(terminal), func(t *testing.T) {
			j := mustCreate(t, s, &jobs.Job{TenantID: "tenant-a"})
			mustAdvance(t, s, "tenant-a", j.ID, jobs.StatusProcessing)
			mustAdvance(t, s, "tenant-a", j.ID, terminal)

			label := "late"
			_, err := s.UpdateJob(ctx, "tenant-a", j.ID, jobs.Update{Label: &label})
			if !errors.Is(err, jobs.ErrTerminalState) {
				t.Errorf("Expected ErrTerminalState for label update, got %v", err)
			}
			_, err = s.UpdateJob(ctx, "tenant-a", j.ID, jobs.StatusUpdate(jobs.StatusProcessing))
			if !errors.Is(err, jobs.ErrTerminalState) {
				t.Errorf("Expected ErrTerminalState for status update, got %v", err)
			}

			got, err := s.GetJob(ctx, "tenant-a", j.ID)
			if err != nil {
				t.Fatalf("GetJob failed: %v", err)
			}
			if got.Status != terminal || got.Label != "" {
				t.Errorf("Expected job unchanged in %s, got status=%s label=%q", terminal, got.Status, got.Label)
			}
		})
	}
}

func TestStore_InvalidTransition(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	j := mustCreate(t, s, &jobs.Job{TenantID: "tenant-a"})
	_, err := s.UpdateJob(ctx, "tenant-a", j.ID, jobs.StatusUpdate(jobs.StatusCompleted))
	if !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
	_, err = s.UpdateJob(ctx, "tenant-a", j.ID, jobs.StatusUpdate("archived"))
	if !errors.Is(err, jobs.ErrInvalidStatus) {
		t.Errorf("Expected ErrInvalidStatus, got %v", err)
	}
}

func TestStore_UpdateFields(t *testing.T) {
	s, _, c := newTestStore(t)
	ctx := context.Background()

	j := mustCreate(t, s, &jobs.Job{TenantID: "tenant-a"})
	c.Advance(time.Minute)

	label := "chunking"
	msg := "boom"
	processing := jobs.StatusProcessing
	got, err := s.UpdateJob(ctx, "tenant-a", j.ID, jobs.Update{
		Status: &processing,
		Label:  &label,
		Error:  &msg,
		Result: []byte(`{"pages":2}`),
	})
	if err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}
	if got.Label != "chunking" || got.Error != "boom" || string(got.Result) != `{"pages":2}` {
		t.Errorf("Expected fields applied, got %+v", got)
	}
	if !got.UpdatedAt.Equal(c.Now()) {
		t.Errorf("Expected updated_at %v, got %v", c.Now(), got.UpdatedAt)
	}
	if !got.CreatedAt.Equal(j.CreatedAt) {
		t.Errorf("Expected created_at preserved, got %v", got.CreatedAt)
	}
}

func TestStore_TTLBucketFollowsStatus(t *testing.T) {
	s, _, c := newTestStore(t)
	ctx := context.Background()

	active := mustCreate(t, s, &jobs.Job{TenantID: "tenant-a"})
	done := mustCreate(t, s, &jobs.Job{TenantID: "tenant-a"})
	mustAdvance(t, s, "tenant-a", done.ID, jobs.StatusProcessing)
	mustAdvance(t, s, "tenant-a", done.ID, jobs.StatusCompleted)

	// Past the active TTL but within the terminal TTL.
	c.Advance(2 * time.Hour)

	if _, err := s.GetJob(ctx, "tenant-a", active.ID); !errors.Is(err, jobs.ErrNotFound) {
		t.Errorf("Expected active job expired, got %v", err)
	}
	if _, err := s.GetJob(ctx, "tenant-a", done.ID); err != nil {
		t.Errorf("Expected completed job retained, got %v", err)
	}

	c.Advance(23 * time.Hour)
	if _, err := s.GetJob(ctx, "tenant-a", done.ID); !errors.Is(err, jobs.ErrNotFound) {
		t.Errorf("Expected completed job expired, got %v", err)
	}
}

func TestStore_DeleteJob(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	j := mustCreate(t, s, &jobs.Job{TenantID: "tenant-a", SubjectID: "doc-1"})
	if err := s.DeleteJob(ctx, "tenant-a", j.ID); err != nil {
		t.Fatalf("DeleteJob failed: %v", err)
	}
	if err := s.DeleteJob(ctx, "tenant-a", j.ID); !errors.Is(err, jobs.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}

	active, err := s.ActiveJobForSubject(ctx, "tenant-a", "doc-1")
	if err != nil {
		t.Fatalf("ActiveJobForSubject failed: %v", err)
	}
	if active != nil {
		t.Error("Expected subject released on delete")
	}
}

func TestStore_ActiveJobForSubject(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	j := mustCreate(t, s, &jobs.Job{TenantID: "tenant-a", SubjectID: "doc-1"})
	mustAdvance(t, s, "tenant-a", j.ID, jobs.StatusDeleting)

	active, err := s.ActiveJobForSubject(ctx, "tenant-a", "doc-1")
	if err != nil {
		t.Fatalf("ActiveJobForSubject failed: %v", err)
	}
	if active == nil || active.ID != j.ID {
		t.Fatalf("Expected active job %s, got %+v", j.ID, active)
	}

	mustAdvance(t, s, "tenant-a", j.ID, jobs.StatusFailed)
	active, err = s.ActiveJobForSubject(ctx, "tenant-a", "doc-1")
	if err != nil {
		t.Fatalf("ActiveJobForSubject failed: %v", err)
	}
	if active != nil {
		t.Errorf("Expected no active job after failure, got %s", active.ID)
	}
}

func TestStore_Query(t *testing.T) {
	s, _, c := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		j := mustCreate(t, s, &jobs.Job{TenantID: "tenant-a"})
		ids = append(ids, j.ID)
		c.Advance(time.Second)
	}
	mustAdvance(t, s, "tenant-a", ids[0], jobs.StatusProcessing)
	mustAdvance(t, s, "tenant-a", ids[0], jobs.StatusCompleted)

	tests := []struct {
		name      string
		opts      jobs.ListOptions
		wantIDs   []string
		wantTotal int
		wantPages int
	}{
		{
			name:      "first page oldest first",
			opts:      jobs.ListOptions{PageSize: 2},
			wantIDs:   ids[0:2],
			wantTotal: 5,
			wantPages: 3,
		},
		{
			name:      "last page",
			opts:      jobs.ListOptions{PageSize: 2, Page: 3},
			wantIDs:   ids[4:5],
			wantTotal: 5,
			wantPages: 3,
		},
		{
			name:      "past the end",
			opts:      jobs.ListOptions{PageSize: 2, Page: 9},
			wantIDs:   nil,
			wantTotal: 5,
			wantPages: 3,
		},
		{
			name:      "newest first",
			opts:      jobs.ListOptions{PageSize: 2, Descending: true},
			wantIDs:   []string{ids[4], ids[3]},
			wantTotal: 5,
			wantPages: 3,
		},
		{
			name:      "by updated_at descending",
			opts:      jobs.ListOptions{PageSize: 1, SortBy: jobs.SortByUpdatedAt, Descending: true},
			wantIDs:   []string{ids[0]},
			wantTotal: 5,
			wantPages: 5,
		},
		{
			name:      "status filter",
			opts:      jobs.ListOptions{Statuses: []jobs.Status{jobs.StatusCompleted}},
			wantIDs:   []string{ids[0]},
			wantTotal: 1,
			wantPages: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.Query(ctx, "tenant-a", tt.opts)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if page.Total != tt.wantTotal {
				t.Errorf("Expected total %d, got %d", tt.wantTotal, page.Total)
			}
			if page.TotalPages != tt.wantPages {
				t.Errorf("Expected %d pages, got %d", tt.wantPages, page.TotalPages)
			}
			if len(page.Jobs) != len(tt.wantIDs) {
				t.Fatalf("Expected %d jobs, got %d", len(tt.wantIDs), len(page.Jobs))
			}
			for i, j := range page.Jobs {
				if j.ID != tt.wantIDs[i] {
					t.Errorf("Expected job %d to be %s, got %s", i, tt.wantIDs[i], j.ID)
				}
			}
		})
	}
}

func TestStore_QueryPageSizeBounds(t *testing.T) {
	s, _, _ := newTestStore(t)

	page, err := s.Query(context.Background(), "tenant-a", jobs.ListOptions{PageSize: 10_000})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if page.PageSize != jobs.MaxPageSize {
		t.Errorf("Expected page size capped at %d, got %d", jobs.MaxPageSize, page.PageSize)
	}
	if page.Page != 1 {
		t.Errorf("Expected page 1, got %d", page.Page)
	}

	page, _ = s.Query(context.Background(), "tenant-a", jobs.ListOptions{})
	if page.PageSize != jobs.DefaultPageSize {
		t.Errorf("Expected default page size %d, got %d", jobs.DefaultPageSize, page.PageSize)
	}
}

func TestStore_Summary(t *testing.T) {
	s, _, _ := newTestStore(t)

	a := mustCreate(t, s, &jobs.Job{TenantID: "tenant-a"})
	mustCreate(t, s, &jobs.Job{TenantID: "tenant-a"})
	mustAdvance(t, s, "tenant-a", a.ID, jobs.StatusProcessing)
	mustCreate(t, s, &jobs.Job{TenantID: "tenant-b"})

	sum, err := s.Summary(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if sum.Total != 2 {
		t.Errorf("Expected total 2, got %d", sum.Total)
	}
	if sum.Counts[jobs.StatusPending] != 1 || sum.Counts[jobs.StatusProcessing] != 1 {
		t.Errorf("Expected 1 pending and 1 processing, got %v", sum.Counts)
	}
	if _, ok := sum.Counts[jobs.StatusFailed]; !ok {
		t.Error("Expected every status present in counts")
	}
}

func TestStore_BatchProgress(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, &jobs.Job{TenantID: "tenant-a"})
	b := mustCreate(t, s, &jobs.Job{TenantID: "tenant-a"})
	batch, err := s.CreateBatch(ctx, "tenant-a", "", []string{a.ID, b.ID, "never-created"}, time.Time{})
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	if batch.ID == "" || batch.Total != 3 {
		t.Fatalf("Expected generated batch of 3, got %+v", batch)
	}

	p, err := s.BatchProgress(ctx, "tenant-a", batch.ID)
	if err != nil {
		t.Fatalf("BatchProgress failed: %v", err)
	}
	if p.Done {
		t.Error("Expected batch not done while jobs are pending")
	}
	if p.Counts[jobs.StatusPending] != 2 || p.Missing != 1 {
		t.Errorf("Expected 2 pending and 1 missing, got counts=%v missing=%d", p.Counts, p.Missing)
	}
	if p.Jobs[2] != nil {
		t.Error("Expected missing member to be nil")
	}

	// Progress is recomputed from member jobs on every read.
	for _, id := range []string{a.ID, b.ID} {
		mustAdvance(t, s, "tenant-a", id, jobs.StatusProcessing)
	}
	mustAdvance(t, s, "tenant-a", a.ID, jobs.StatusCompleted)
	mustAdvance(t, s, "tenant-a", b.ID, jobs.StatusFailed)

	p, err = s.BatchProgress(ctx, "tenant-a", batch.ID)
	if err != nil {
		t.Fatalf("BatchProgress failed: %v", err)
	}
	if !p.Done {
		t.Error("Expected batch done once no member is active")
	}
	if p.Counts[jobs.StatusCompleted] != 1 || p.Counts[jobs.StatusFailed] != 1 {
		t.Errorf("Expected 1 completed and 1 failed, got %v", p.Counts)
	}

	if _, err := s.BatchProgress(ctx, "tenant-b", batch.ID); !errors.Is(err, jobs.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from another tenant, got %v", err)
	}

	ids, err := s.ListBatches(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("ListBatches failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != batch.ID {
		t.Errorf("Expected [%s], got %v", batch.ID, ids)
	}
}

func TestStore_ObservesStatusChanges(t *testing.T) {
	obs := &recordingObserver{}
	s, _, _ := newTestStore(t, jobs.WithObserver(obs))

	j := mustCreate(t, s, &jobs.Job{TenantID: "tenant-a"})
	mustAdvance(t, s, "tenant-a", j.ID, jobs.StatusProcessing)
	mustAdvance(t, s, "tenant-a", j.ID, jobs.StatusProcessing)
	mustAdvance(t, s, "tenant-a", j.ID, jobs.StatusCompleted)

	want := []jobs.Status{jobs.StatusPending, jobs.StatusProcessing, jobs.StatusCompleted}
	if len(obs.statuses) != len(want) {
		t.Fatalf("Expected %v, got %v", want, obs.statuses)
	}
	for i := range want {
		if obs.statuses[i] != want[i] {
			t.Errorf("Expected %s at %d, got %s", want[i], i, obs.statuses[i])
		}
	}
}

func TestStore_Cleanup(t *testing.T) {
	s, backend, c := newTestStore(t)

	mustCreate(t, s, &jobs.Job{TenantID: "tenant-a"})
	c.Advance(2 * time.Hour)

	removed, err := s.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 1 || backend.Size() != 0 {
		t.Errorf("Expected 1 removed and empty backend, got removed=%d size=%d", removed, backend.Size())
	}
}
