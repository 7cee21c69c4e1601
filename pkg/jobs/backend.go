package jobs

import (
	"context"
	"time"
)

// Backend persists jobs, batches and subject claims. Implementations live
// in the storage package and must be safe for concurrent use.
//
// Get methods return (nil, nil) for absent records. A ttl of zero means no
// expiry.
type Backend interface {
	// Name identifies the backend in logs, e.g. "memory".
	Name() string

	// InsertJob stores a job only if no unexpired job with the same id
	// exists, and reports whether it was stored.
	InsertJob(ctx context.Context, job *Job, ttl time.Duration) (bool, error)

	// PutJob creates or replaces a job and its tenant index entry.
	PutJob(ctx context.Context, job *Job, ttl time.Duration) error
	GetJob(ctx context.Context, tenantID, jobID string) (*Job, error)

	// DeleteJob removes a job and reports whether it existed.
	DeleteJob(ctx context.Context, tenantID, jobID string) (bool, error)

	// ListJobs returns every unexpired job of a tenant via the tenant index.
	ListJobs(ctx context.Context, tenantID string) ([]*Job, error)

	PutBatch(ctx context.Context, batch *Batch, ttl time.Duration) error
	GetBatch(ctx context.Context, tenantID, batchID string) (*Batch, error)

	// ListBatches returns the ids of a tenant's unexpired batches, sorted.
	ListBatches(ctx context.Context, tenantID string) ([]string, error)

	// ClaimSubject atomically records jobID as the holder of a subject if
	// it is unclaimed. It returns the current holder and whether jobID
	// holds the claim. A claim already held by jobID has its expiry reset
	// to ttl.
	ClaimSubject(ctx context.Context, tenantID, subjectID, jobID string, ttl time.Duration) (holder string, ok bool, err error)

	// SubjectHolder returns the job holding a subject, or "".
	SubjectHolder(ctx context.Context, tenantID, subjectID string) (string, error)

	// ReleaseSubject removes the claim only if jobID still holds it.
	ReleaseSubject(ctx context.Context, tenantID, subjectID, jobID string) error

	// Cleanup removes records that expired before now and returns how many
	// were removed. Backends with native expiry may return zero.
	Cleanup(ctx context.Context, now time.Time) (int, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}
