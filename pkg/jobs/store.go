package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"mercator-hq/saturn/pkg/tenant"
)

// NewID returns a new random job or batch id.
func NewID() string {
	return uuid.NewString()
}

// Observer receives job store events. Implementations must be safe for
// concurrent use.
type Observer interface {
	// ObserveJobStatus is called after a job is written with status.
	ObserveJobStatus(status Status)

	// ObserveDuplicateOperation is called when the subject guard rejects a job.
	ObserveDuplicateOperation()
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver registers a store observer.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is the job and batch store. All methods are scoped to a tenant, and
// a job id from one tenant is never visible in another.
type Store struct {
	backend  Backend
	ttl      TTL
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// NewStore creates a store over backend.
func NewStore(backend Backend, ttl TTL, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		ttl:     ttl,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "jobs.store", "backend", backend.Name())
	return s
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// CreateJob inserts a new job. An empty ID is generated and an empty status
// becomes pending. A job with a subject and an active status is rejected
// with a *DuplicateOperationError while another active job holds the subject.
func (s *Store) CreateJob(ctx context.Context, job *Job) (*Job, error) {
	if err := tenant.ValidateID(job.TenantID); err != nil {
		return nil, err
	}
	j := job.Clone()
	if j.ID == "" {
		j.ID = NewID()
	}
	if j.Status == "" {
		j.Status = StatusPending
	}
	if !j.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, j.Status)
	}

	now := s.now().UTC()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now

	// The record is written before the claim so that a claim holder always
	// resolves to a job. A rejected job is removed again.
	inserted, err := s.backend.InsertJob(ctx, j, s.ttl.For(j.Status))
	if err != nil {
		return nil, fmt.Errorf("create job %s: %w", j.ID, err)
	}
	if !inserted {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, j.ID)
	}
	if j.SubjectID != "" && j.Status.IsActive() {
		if err := s.claim(ctx, j); err != nil {
			if _, derr := s.backend.DeleteJob(ctx, j.TenantID, j.ID); derr != nil {
				s.logger.Warn("failed to remove rejected job",
					"tenant_id", j.TenantID,
					"job_id", j.ID,
					"error", derr,
				)
			}
			return nil, err
		}
	}

	s.logger.Debug("job created",
		"tenant_id", j.TenantID,
		"job_id", j.ID,
		"status", j.Status,
		"subject_id", j.SubjectID,
	)
	s.observe(j.Status)
	return j.Clone(), nil
}

// claim takes the subject claim for j, taking over a stale claim once.
func (s *Store) claim(ctx context.Context, j *Job) error {
	for attempt := 0; attempt < 2; attempt++ {
		holder, ok, err := s.backend.ClaimSubject(ctx, j.TenantID, j.SubjectID, j.ID, s.ttl.Active)
		if err != nil {
			return fmt.Errorf("claim subject %s: %w", j.SubjectID, err)
		}
		if ok {
			return nil
		}

		active, err := s.backend.GetJob(ctx, j.TenantID, holder)
		if err != nil {
			return fmt.Errorf("claim subject %s: %w", j.SubjectID, err)
		}
		if active != nil && active.Status.IsActive() {
			if s.observer != nil {
				s.observer.ObserveDuplicateOperation()
			}
			s.logger.Info("rejected duplicate operation",
				"tenant_id", j.TenantID,
				"subject_id", j.SubjectID,
				"active_job_id", active.ID,
				"active_status", active.Status,
			)
			return &DuplicateOperationError{
				TenantID:  j.TenantID,
				SubjectID: j.SubjectID,
				JobID:     active.ID,
				Operation: active.Operation,
				Status:    active.Status,
			}
		}

		s.logger.Debug("releasing stale subject claim",
			"tenant_id", j.TenantID,
			"subject_id", j.SubjectID,
			"holder", holder,
		)
		if err := s.backend.ReleaseSubject(ctx, j.TenantID, j.SubjectID, holder); err != nil {
			return fmt.Errorf("release stale claim on %s: %w", j.SubjectID, err)
		}
	}
	return fmt.Errorf("claim subject %s: %w", j.SubjectID, ErrDuplicateOperation)
}

// extendClaim keeps an active job's subject claim alive for another
// ttl.Active. A claim that lapsed is taken again.
func (s *Store) extendClaim(ctx context.Context, j *Job) error {
	holder, ok, err := s.backend.ClaimSubject(ctx, j.TenantID, j.SubjectID, j.ID, s.ttl.Active)
	if err != nil {
		return fmt.Errorf("extend claim on %s: %w", j.SubjectID, err)
	}
	if !ok {
		s.logger.Warn("subject claimed by another job",
			"tenant_id", j.TenantID,
			"job_id", j.ID,
			"subject_id", j.SubjectID,
			"holder", holder,
		)
	}
	return nil
}

// UpdateJob applies u to a job and refreshes its TTL for the new status.
// Updates to terminal jobs return ErrTerminalState.
func (s *Store) UpdateJob(ctx context.Context, tenantID, jobID string, u Update) (*Job, error) {
	j, err := s.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if j.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: job %s is %s", ErrTerminalState, jobID, j.Status)
	}

	prev := j.Status
	if u.Status != nil {
		next := *u.Status
		if !next.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, next)
		}
		if !prev.CanTransition(next) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, prev, next)
		}
		j.Status = next
	}
	if u.Label != nil {
		j.Label = *u.Label
	}
	if u.Error != nil {
		j.Error = *u.Error
	}
	if u.Result != nil {
		j.Result = append(j.Result[:0:0], u.Result...)
	}
	j.UpdatedAt = s.now().UTC()

	if err := s.backend.PutJob(ctx, j, s.ttl.For(j.Status)); err != nil {
		return nil, fmt.Errorf("update job %s: %w", jobID, err)
	}

	if j.Status.IsActive() && j.SubjectID != "" {
		if err := s.extendClaim(ctx, j); err != nil {
			return nil, fmt.Errorf("update job %s: %w", jobID, err)
		}
	}
	if j.Status.IsTerminal() && j.SubjectID != "" {
		if err := s.backend.ReleaseSubject(ctx, tenantID, j.SubjectID, j.ID); err != nil {
			s.logger.Warn("failed to release subject claim",
				"tenant_id", tenantID,
				"job_id", jobID,
				"subject_id", j.SubjectID,
				"error", err,
			)
		}
	}

	if prev != j.Status {
		s.logger.Debug("job status changed",
			"tenant_id", tenantID,
			"job_id", jobID,
			"from", prev,
			"to", j.Status,
		)
		s.observe(j.Status)
	}
	return j.Clone(), nil
}

// GetJob returns a job or ErrNotFound.
func (s *Store) GetJob(ctx context.Context, tenantID, jobID string) (*Job, error) {
	j, err := s.backend.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	if j == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	return j, nil
}

// DeleteJob removes a job, releasing its subject claim.
func (s *Store) DeleteJob(ctx context.Context, tenantID, jobID string) error {
	j, err := s.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return err
	}

	ok, err := s.backend.DeleteJob(ctx, tenantID, jobID)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", jobID, err)
	}
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	if j.SubjectID != "" {
		if err := s.backend.ReleaseSubject(ctx, tenantID, j.SubjectID, jobID); err != nil {
			return fmt.Errorf("release subject %s: %w", j.SubjectID, err)
		}
	}

	s.logger.Debug("job deleted", "tenant_id", tenantID, "job_id", jobID)
	return nil
}

// ListJobs returns a tenant's jobs keyed by id.
func (s *Store) ListJobs(ctx context.Context, tenantID string) (map[string]*Job, error) {
	list, err := s.backend.ListJobs(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list jobs for tenant %s: %w", tenantID, err)
	}
	out := make(map[string]*Job, len(list))
	for _, j := range list {
		out[j.ID] = j
	}
	return out, nil
}

// Query returns one filtered, sorted page of a tenant's jobs.
func (s *Store) Query(ctx context.Context, tenantID string, opts ListOptions) (*Page, error) {
	list, err := s.backend.ListJobs(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list jobs for tenant %s: %w", tenantID, err)
	}

	want := make(map[Status]bool, len(opts.Statuses))
	for _, st := range opts.Statuses {
		want[st] = true
	}
	filtered := list[:0]
	for _, j := range list {
		if len(want) > 0 && !want[j.Status] {
			continue
		}
		if opts.SubjectID != "" && j.SubjectID != opts.SubjectID {
			continue
		}
		filtered = append(filtered, j)
	}

	key := func(j *Job) time.Time { return j.CreatedAt }
	if opts.SortBy == SortByUpdatedAt {
		key = func(j *Job) time.Time { return j.UpdatedAt }
	}
	sort.SliceStable(filtered, func(a, b int) bool {
		ka, kb := key(filtered[a]), key(filtered[b])
		if ka.Equal(kb) {
			if opts.Descending {
				return filtered[a].ID > filtered[b].ID
			}
			return filtered[a].ID < filtered[b].ID
		}
		if opts.Descending {
			return ka.After(kb)
		}
		return ka.Before(kb)
	})

	size := opts.PageSize
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	page := max(opts.Page, 1)

	total := len(filtered)
	start := min((page-1)*size, total)
	end := min(start+size, total)

	return &Page{
		Jobs:       filtered[start:end],
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: int(math.Ceil(float64(total) / float64(size))),
	}, nil
}

// Summary counts a tenant's jobs by status.
func (s *Store) Summary(ctx context.Context, tenantID string) (*Summary, error) {
	list, err := s.backend.ListJobs(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list jobs for tenant %s: %w", tenantID, err)
	}
	sum := &Summary{TenantID: tenantID, Total: len(list), Counts: make(map[Status]int, len(Statuses))}
	for _, st := range Statuses {
		sum.Counts[st] = 0
	}
	for _, j := range list {
		sum.Counts[j.Status]++
	}
	return sum, nil
}

// ActiveJobForSubject returns the active job holding a subject, or nil.
func (s *Store) ActiveJobForSubject(ctx context.Context, tenantID, subjectID string) (*Job, error) {
	holder, err := s.backend.SubjectHolder(ctx, tenantID, subjectID)
	if err != nil {
		return nil, fmt.Errorf("lookup subject %s: %w", subjectID, err)
	}
	if holder == "" {
		return nil, nil
	}
	j, err := s.backend.GetJob(ctx, tenantID, holder)
	if err != nil {
		return nil, fmt.Errorf("lookup subject %s: %w", subjectID, err)
	}
	if j == nil || !j.Status.IsActive() {
		return nil, nil
	}
	return j, nil
}

// CreateBatch records an ordered group of job ids. An empty batchID is
// generated and a zero createdAt means now.
func (s *Store) CreateBatch(ctx context.Context, tenantID, batchID string, jobIDs []string, createdAt time.Time) (*Batch, error) {
	if err := tenant.ValidateID(tenantID); err != nil {
		return nil, err
	}
	if batchID == "" {
		batchID = NewID()
	}
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	b := &Batch{
		ID:        batchID,
		TenantID:  tenantID,
		JobIDs:    append([]string(nil), jobIDs...),
		Total:     len(jobIDs),
		CreatedAt: createdAt.UTC(),
	}
	if err := s.backend.PutBatch(ctx, b, s.ttl.Batch); err != nil {
		return nil, fmt.Errorf("create batch %s: %w", batchID, err)
	}
	s.logger.Debug("batch created", "tenant_id", tenantID, "batch_id", batchID, "total", b.Total)
	return b.Clone(), nil
}

// GetBatch returns a batch or ErrNotFound.
func (s *Store) GetBatch(ctx context.Context, tenantID, batchID string) (*Batch, error) {
	b, err := s.backend.GetBatch(ctx, tenantID, batchID)
	if err != nil {
		return nil, fmt.Errorf("get batch %s: %w", batchID, err)
	}
	if b == nil {
		return nil, fmt.Errorf("batch %s: %w", batchID, ErrNotFound)
	}
	return b, nil
}

// ListBatches returns the ids of a tenant's batches.
func (s *Store) ListBatches(ctx context.Context, tenantID string) ([]string, error) {
	ids, err := s.backend.ListBatches(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list batches for tenant %s: %w", tenantID, err)
	}
	return ids, nil
}

// BatchProgress resolves every member job and derives the batch's counts.
// Members that no longer exist count as Missing. The batch is Done when no
// member is active.
func (s *Store) BatchProgress(ctx context.Context, tenantID, batchID string) (*BatchProgress, error) {
	b, err := s.GetBatch(ctx, tenantID, batchID)
	if err != nil {
		return nil, err
	}

	p := &BatchProgress{
		BatchID:   b.ID,
		Total:     b.Total,
		Counts:    make(map[Status]int, len(Statuses)),
		CreatedAt: b.CreatedAt,
		Jobs:      make([]*Job, len(b.JobIDs)),
	}
	for _, st := range Statuses {
		p.Counts[st] = 0
	}

	active := 0
	for i, id := range b.JobIDs {
		j, err := s.backend.GetJob(ctx, tenantID, id)
		if err != nil {
			return nil, fmt.Errorf("resolve batch %s job %s: %w", batchID, id, err)
		}
		if j == nil {
			p.Missing++
			continue
		}
		p.Jobs[i] = j
		p.Counts[j.Status]++
		if j.Status.IsActive() {
			active++
		}
	}
	p.Done = active == 0
	return p, nil
}

// Cleanup removes expired records from the backend.
func (s *Store) Cleanup(ctx context.Context) (int, error) {
	return s.backend.Cleanup(ctx, s.now())
}

// Ping checks the backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) observe(st Status) {
	if s.observer != nil {
		s.observer.ObserveJobStatus(st)
	}
}
