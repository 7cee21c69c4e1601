package jobs

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDeleting   Status = "deleting"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusProcessing, StatusDeleting, StatusCompleted, StatusFailed}

// transitions lists the allowed status changes.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusDeleting},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusDeleting:   {StatusCompleted, StatusFailed},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusDeleting, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether s is completed or failed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsActive reports whether s is a known non-terminal status.
func (s Status) IsActive() bool {
	return s.Valid() && !s.IsTerminal()
}

// CanTransition reports whether a job in s may move to next. Staying in the
// same active status is allowed.
func (s Status) CanTransition(next Status) bool {
	if s.IsTerminal() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Job is one tracked unit of work.
type Job struct {
	ID       string `json:"job_id"`
	TenantID string `json:"tenant_id"`
	Status   Status `json:"status"`

	// SubjectID is the document or resource the job acts on.
	SubjectID string `json:"subject_id,omitempty"`

	// Label is a human-readable name, typically the uploaded file name.
	Label string `json:"label,omitempty"`

	// Operation names what the job does, e.g. "insert" or "delete".
	Operation string `json:"operation,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Clone returns a deep copy of j.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.Result != nil {
		c.Result = append(json.RawMessage(nil), j.Result...)
	}
	return &c
}

// Update is a partial change to a job. Nil fields are left unchanged.
type Update struct {
	Status *Status
	Label  *string
	Error  *string
	Result json.RawMessage
}

// StatusUpdate returns an Update that only changes the status.
func StatusUpdate(s Status) Update {
	return Update{Status: &s}
}

// Batch groups jobs submitted together. It is immutable after creation.
type Batch struct {
	ID        string    `json:"batch_id"`
	TenantID  string    `json:"tenant_id"`
	JobIDs    []string  `json:"job_ids"`
	Total     int       `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy of b.
func (b *Batch) Clone() *Batch {
	if b == nil {
		return nil
	}
	c := *b
	c.JobIDs = append([]string(nil), b.JobIDs...)
	return &c
}

// BatchProgress is a batch's aggregate state, derived from its jobs.
type BatchProgress struct {
	BatchID   string         `json:"batch_id"`
	Total     int            `json:"total"`
	Counts    map[Status]int `json:"counts"`
	Missing   int            `json:"missing"`
	Done      bool           `json:"done"`
	CreatedAt time.Time      `json:"created_at"`

	// Jobs holds the resolved member jobs in batch order. Expired or deleted
	// members are nil.
	Jobs []*Job `json:"jobs"`
}

// Summary counts a tenant's jobs by status.
type Summary struct {
	TenantID string         `json:"tenant_id"`
	Total    int            `json:"total"`
	Counts   map[Status]int `json:"counts"`
}

// Sort keys for ListOptions.
const (
	SortByCreatedAt = "created_at"
	SortByUpdatedAt = "updated_at"
)

// DefaultPageSize and MaxPageSize bound ListOptions.PageSize.
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// ListOptions filters, sorts and paginates a job listing.
type ListOptions struct {
	// Statuses keeps only jobs in one of these statuses. Empty keeps all.
	Statuses []Status

	// SubjectID keeps only jobs for this subject.
	SubjectID string

	// SortBy is SortByCreatedAt (default) or SortByUpdatedAt.
	SortBy string

	// Descending sorts newest first.
	Descending bool

	// Page is 1-based. Values below 1 mean 1.
	Page int

	// PageSize defaults to DefaultPageSize and is capped at MaxPageSize.
	PageSize int
}

// Page is one page of a job listing.
type Page struct {
	Jobs       []*Job `json:"jobs"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalPages int    `json:"total_pages"`
}

// TTL configures expiry per status bucket. Zero disables expiry for that
// bucket.
type TTL struct {
	Active   time.Duration
	Terminal time.Duration
	Batch    time.Duration
}

// For returns the TTL of a job in status s.
func (t TTL) For(s Status) time.Duration {
	if s.IsTerminal() {
		return t.Terminal
	}
	return t.Active
}
