package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"mercator-hq/saturn/pkg/jobs"
)

// Memory is an in-process jobs.Backend. Nothing survives a restart.
//
// Expired records are invisible to reads at once and are physically
// removed by Cleanup.
type Memory struct {
	now func() time.Time

	mu       sync.RWMutex
	jobs     map[recordKey]jobEntry
	index    map[string]map[string]struct{}
	batches  map[recordKey]batchEntry
	bindex   map[string]map[string]struct{}
	subjects map[recordKey]subjectEntry
}

type recordKey struct {
	tenantID string
	id       string
}

type jobEntry struct {
	job     *jobs.Job
	expires time.Time
}

type batchEntry struct {
	batch   *jobs.Batch
	expires time.Time
}

type subjectEntry struct {
	jobID   string
	expires time.Time
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock creates an in-memory backend that reads time from now.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{
		now:      now,
		jobs:     make(map[recordKey]jobEntry),
		index:    make(map[string]map[string]struct{}),
		batches:  make(map[recordKey]batchEntry),
		bindex:   make(map[string]map[string]struct{}),
		subjects: make(map[recordKey]subjectEntry),
	}
}

// Name implements jobs.Backend.
func (m *Memory) Name() string { return BackendMemory }

func (m *Memory) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

func expired(expires, now time.Time) bool {
	return !expires.IsZero() && !now.Before(expires)
}

// InsertJob implements jobs.Backend.
func (m *Memory) InsertJob(ctx context.Context, job *jobs.Job, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := recordKey{job.TenantID, job.ID}
	if e, ok := m.jobs[k]; ok && !expired(e.expires, m.now()) {
		return false, nil
	}
	m.jobs[k] = jobEntry{job: job.Clone(), expires: m.expiry(ttl)}
	addToIndex(m.index, job.TenantID, job.ID)
	return true, nil
}

// PutJob implements jobs.Backend.
func (m *Memory) PutJob(ctx context.Context, job *jobs.Job, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs[recordKey{job.TenantID, job.ID}] = jobEntry{job: job.Clone(), expires: m.expiry(ttl)}
	addToIndex(m.index, job.TenantID, job.ID)
	return nil
}

func addToIndex(index map[string]map[string]struct{}, tenantID, id string) {
	ids, ok := index[tenantID]
	if !ok {
		ids = make(map[string]struct{})
		index[tenantID] = ids
	}
	ids[id] = struct{}{}
}

func removeFromIndex(index map[string]map[string]struct{}, tenantID, id string) {
	if ids, ok := index[tenantID]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(index, tenantID)
		}
	}
}

// GetJob implements jobs.Backend.
func (m *Memory) GetJob(ctx context.Context, tenantID, jobID string) (*jobs.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.jobs[recordKey{tenantID, jobID}]
	if !ok || expired(e.expires, m.now()) {
		return nil, nil
	}
	return e.job.Clone(), nil
}

// DeleteJob implements jobs.Backend.
func (m *Memory) DeleteJob(ctx context.Context, tenantID, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := recordKey{tenantID, jobID}
	e, ok := m.jobs[k]
	if !ok {
		return false, nil
	}
	m.removeJobLocked(k)
	return !expired(e.expires, m.now()), nil
}

// removeJobLocked drops a job and its index entry. Caller must hold m.mu.
func (m *Memory) removeJobLocked(k recordKey) {
	delete(m.jobs, k)
	removeFromIndex(m.index, k.tenantID, k.id)
}

// ListJobs implements jobs.Backend.
func (m *Memory) ListJobs(ctx context.Context, tenantID string) ([]*jobs.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	ids := m.index[tenantID]
	out := make([]*jobs.Job, 0, len(ids))
	for id := range ids {
		e, ok := m.jobs[recordKey{tenantID, id}]
		if !ok || expired(e.expires, now) {
			continue
		}
		out = append(out, e.job.Clone())
	}
	return out, nil
}

// PutBatch implements jobs.Backend.
func (m *Memory) PutBatch(ctx context.Context, batch *jobs.Batch, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.batches[recordKey{batch.TenantID, batch.ID}] = batchEntry{batch: batch.Clone(), expires: m.expiry(ttl)}
	addToIndex(m.bindex, batch.TenantID, batch.ID)
	return nil
}

// GetBatch implements jobs.Backend.
func (m *Memory) GetBatch(ctx context.Context, tenantID, batchID string) (*jobs.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.batches[recordKey{tenantID, batchID}]
	if !ok || expired(e.expires, m.now()) {
		return nil, nil
	}
	return e.batch.Clone(), nil
}

// ListBatches implements jobs.Backend.
func (m *Memory) ListBatches(ctx context.Context, tenantID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	var out []string
	for id := range m.bindex[tenantID] {
		if e, ok := m.batches[recordKey{tenantID, id}]; ok && !expired(e.expires, now) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ClaimSubject implements jobs.Backend.
func (m *Memory) ClaimSubject(ctx context.Context, tenantID, subjectID, jobID string, ttl time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := recordKey{tenantID, subjectID}
	if e, ok := m.subjects[k]; ok && !expired(e.expires, m.now()) && e.jobID != jobID {
		return e.jobID, false, nil
	}
	m.subjects[k] = subjectEntry{jobID: jobID, expires: m.expiry(ttl)}
	return jobID, true, nil
}

// SubjectHolder implements jobs.Backend.
func (m *Memory) SubjectHolder(ctx context.Context, tenantID, subjectID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.subjects[recordKey{tenantID, subjectID}]
	if !ok || expired(e.expires, m.now()) {
		return "", nil
	}
	return e.jobID, nil
}

// ReleaseSubject implements jobs.Backend.
func (m *Memory) ReleaseSubject(ctx context.Context, tenantID, subjectID, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := recordKey{tenantID, subjectID}
	if e, ok := m.subjects[k]; ok && e.jobID == jobID {
		delete(m.subjects, k)
	}
	return nil
}

// Cleanup implements jobs.Backend.
func (m *Memory) Cleanup(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, e := range m.jobs {
		if expired(e.expires, now) {
			m.removeJobLocked(k)
			removed++
		}
	}
	for k, e := range m.batches {
		if expired(e.expires, now) {
			delete(m.batches, k)
			removeFromIndex(m.bindex, k.tenantID, k.id)
			removed++
		}
	}
	for k, e := range m.subjects {
		if expired(e.expires, now) {
			delete(m.subjects, k)
			removed++
		}
	}
	return removed, nil
}

// Ping implements jobs.Backend.
func (m *Memory) Ping(ctx context.Context) error { return nil }

// Close implements jobs.Backend.
func (m *Memory) Close() error { return nil }

// Size returns the number of stored jobs, including expired ones not yet
// cleaned up.
func (m *Memory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}
