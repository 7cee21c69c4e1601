package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ReporterConfig bounds the retries of one job state write.
type ReporterConfig struct {
	// MaxRetries is the number of retries after the first attempt. Zero
	// selects the default and a negative value disables retries.
	// Default: 3
	MaxRetries int

	// InitialInterval is the first retry delay.
	// Default: 100ms
	InitialInterval time.Duration

	// MaxInterval caps the retry delay.
	// Default: 2s
	MaxInterval time.Duration
}

// Reporter advances job state on behalf of workers. Transient backend
// failures are retried with exponential backoff. A write that keeps failing
// is logged and reported as ErrUnknownState so the worker's own operation
// can carry on.
type Reporter struct {
	store  *Store
	cfg    ReporterConfig
	logger *slog.Logger
}

// NewReporter creates a reporter for store.
func NewReporter(store *Store, cfg ReporterConfig, logger *slog.Logger) *Reporter {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		store:  store,
		cfg:    cfg,
		logger: logger.With("component", "jobs.reporter"),
	}
}

// Advance applies u to a job with retries. ErrNotFound, ErrTerminalState,
// ErrInvalidTransition and ErrInvalidStatus are returned at once. Any other
// failure that survives every retry is wrapped in ErrUnknownState.
func (r *Reporter) Advance(ctx context.Context, tenantID, jobID string, u Update) (*Job, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.MaxInterval = r.cfg.MaxInterval

	attempts := 0
	op := func() (*Job, error) {
		attempts++
		j, err := r.store.UpdateJob(ctx, tenantID, jobID, u)
		if err != nil && isPermanent(err) {
			return nil, backoff.Permanent(err)
		}
		return j, err
	}

	j, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.cfg.MaxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.Warn("job state write failed, retrying",
				"tenant_id", tenantID,
				"job_id", jobID,
				"attempt", attempts,
				"retry_in", next,
				"error", err,
			)
		}),
	)
	if err == nil {
		return j, nil
	}
	if isPermanent(err) {
		return nil, err
	}

	r.logger.Error("job state write gave up",
		"tenant_id", tenantID,
		"job_id", jobID,
		"attempts", attempts,
		"error", err,
	)
	return nil, fmt.Errorf("%w: job %s after %d attempts: %w", ErrUnknownState, jobID, attempts, err)
}

// Start moves a job to processing.
func (r *Reporter) Start(ctx context.Context, tenantID, jobID string) (*Job, error) {
	return r.Advance(ctx, tenantID, jobID, StatusUpdate(StatusProcessing))
}

// Complete moves a job to completed with an optional JSON-encodable result.
func (r *Reporter) Complete(ctx context.Context, tenantID, jobID string, result any) (*Job, error) {
	u := StatusUpdate(StatusCompleted)
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encode result for job %s: %w", jobID, err)
		}
		u.Result = data
	}
	return r.Advance(ctx, tenantID, jobID, u)
}

// Fail moves a job to failed, recording cause.
func (r *Reporter) Fail(ctx context.Context, tenantID, jobID string, cause error) (*Job, error) {
	u := StatusUpdate(StatusFailed)
	if cause != nil {
		msg := cause.Error()
		u.Error = &msg
	}
	return r.Advance(ctx, tenantID, jobID, u)
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTerminalState) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
