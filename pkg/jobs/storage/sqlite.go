package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/saturn/pkg/jobs"
)

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file. Its directory is created if needed.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// CheckpointInterval is how often the WAL is checkpointed.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// Clock overrides the time source used for expiry checks.
	Clock func() time.Time
}

// SQLite is a durable single-node jobs.Backend. Expired rows are hidden from
// reads and removed by Cleanup.
type SQLite struct {
	db        *sql.DB
	path      string
	now       func() time.Time
	interval  time.Duration
	done      chan struct{}
	closeOnce sync.Once

	// mu serializes writers so multi-statement operations stay atomic.
	mu sync.Mutex

	putJobStmt    *sql.Stmt
	getJobStmt    *sql.Stmt
	deleteJobStmt *sql.Stmt
	listJobsStmt  *sql.Stmt
	putBatchStmt  *sql.Stmt
	getBatchStmt  *sql.Stmt
	listBatchStmt *sql.Stmt
}

// NewSQLite opens (or creates) the database at cfg.Path.
func NewSQLite(cfg SQLiteConfig) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLite{
		db:       db,
		path:     cfg.Path,
		now:      cfg.Clock,
		interval: cfg.CheckpointInterval,
		done:     make(chan struct{}),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go s.checkpointLoop()

	return s, nil
}

// Name implements jobs.Backend.
func (s *SQLite) Name() string { return BackendSQLite }

// Path returns the database file.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		tenant_id  TEXT NOT NULL,
		job_id     TEXT NOT NULL,
		status     TEXT NOT NULL,
		subject_id TEXT NOT NULL DEFAULT '',
		data       TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (tenant_id, job_id)
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_expires ON jobs(expires_at) WHERE expires_at > 0;

	CREATE TABLE IF NOT EXISTS batches (
		tenant_id  TEXT NOT NULL,
		batch_id   TEXT NOT NULL,
		data       TEXT NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (tenant_id, batch_id)
	);
	CREATE INDEX IF NOT EXISTS idx_batches_expires ON batches(expires_at) WHERE expires_at > 0;

	CREATE TABLE IF NOT EXISTS subjects (
		tenant_id  TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		job_id     TEXT NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (tenant_id, subject_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLite) prepareStatements() error {
	var err error
	prepare := func(dst **sql.Stmt, name, query string) {
		if err != nil {
			return
		}
		*dst, err = s.db.Prepare(query)
		if err != nil {
			err = fmt.Errorf("failed to prepare %s statement: %w", name, err)
		}
	}

	prepare(&s.putJobStmt, "put job", `
		INSERT INTO jobs (tenant_id, job_id, status, subject_id, data, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, job_id) DO UPDATE SET
			status = excluded.status,
			subject_id = excluded.subject_id,
			data = excluded.data,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at
	`)
	prepare(&s.getJobStmt, "get job", `
		SELECT data FROM jobs
		WHERE tenant_id = ? AND job_id = ? AND (expires_at = 0 OR expires_at > ?)
	`)
	prepare(&s.deleteJobStmt, "delete job", `
		DELETE FROM jobs
		WHERE tenant_id = ? AND job_id = ? AND (expires_at = 0 OR expires_at > ?)
	`)
	prepare(&s.listJobsStmt, "list jobs", `
		SELECT data FROM jobs
		WHERE tenant_id = ? AND (expires_at = 0 OR expires_at > ?)
		ORDER BY job_id
	`)
	prepare(&s.putBatchStmt, "put batch", `
		INSERT INTO batches (tenant_id, batch_id, data, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (tenant_id, batch_id) DO UPDATE SET
			data = excluded.data,
			expires_at = excluded.expires_at
	`)
	prepare(&s.getBatchStmt, "get batch", `
		SELECT data FROM batches
		WHERE tenant_id = ? AND batch_id = ? AND (expires_at = 0 OR expires_at > ?)
	`)
	prepare(&s.listBatchStmt, "list batches", `
		SELECT batch_id FROM batches
		WHERE tenant_id = ? AND (expires_at = 0 OR expires_at > ?)
		ORDER BY batch_id
	`)
	return err
}

func (s *SQLite) expiresAt(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return s.now().Add(ttl).UnixNano()
}

// InsertJob implements jobs.Backend. An expired row with the same id is
// overwritten.
func (s *SQLite) InsertJob(ctx context.Context, job *jobs.Job, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return false, fmt.Errorf("failed to marshal job: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (tenant_id, job_id, status, subject_id, data, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, job_id) DO UPDATE SET
			status = excluded.status,
			subject_id = excluded.subject_id,
			data = excluded.data,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at
		WHERE jobs.expires_at > 0 AND jobs.expires_at <= ?`,
		job.TenantID, job.ID, string(job.Status), job.SubjectID, string(data),
		job.UpdatedAt.UnixNano(), s.expiresAt(ttl), s.now().UnixNano(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert job: %w", err)
	}
	return n > 0, nil
}

// PutJob implements jobs.Backend.
func (s *SQLite) PutJob(ctx context.Context, job *jobs.Job, ttl time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.putJobStmt.ExecContext(ctx,
		job.TenantID, job.ID, string(job.Status), job.SubjectID, string(data),
		job.UpdatedAt.UnixNano(), s.expiresAt(ttl),
	)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// GetJob implements jobs.Backend.
func (s *SQLite) GetJob(ctx context.Context, tenantID, jobID string) (*jobs.Job, error) {
	var data string
	err := s.getJobStmt.QueryRowContext(ctx, tenantID, jobID, s.now().UnixNano()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}

	var j jobs.Job
	if err := json.Unmarshal([]byte(data), &j); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &j, nil
}

// DeleteJob implements jobs.Backend.
func (s *SQLite) DeleteJob(ctx context.Context, tenantID, jobID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.deleteJobStmt.ExecContext(ctx, tenantID, jobID, s.now().UnixNano())
	if err != nil {
		return false, fmt.Errorf("failed to delete job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// ListJobs implements jobs.Backend.
func (s *SQLite) ListJobs(ctx context.Context, tenantID string) ([]*jobs.Job, error) {
	rows, err := s.listJobsStmt.QueryContext(ctx, tenantID, s.now().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var out []*jobs.Job
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var j jobs.Job
		if err := json.Unmarshal([]byte(data), &j); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job: %w", err)
		}
		out = append(out, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// PutBatch implements jobs.Backend.
func (s *SQLite) PutBatch(ctx context.Context, batch *jobs.Batch, ttl time.Duration) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.putBatchStmt.ExecContext(ctx, batch.TenantID, batch.ID, string(data), s.expiresAt(ttl)); err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}

// GetBatch implements jobs.Backend.
func (s *SQLite) GetBatch(ctx context.Context, tenantID, batchID string) (*jobs.Batch, error) {
	var data string
	err := s.getBatchStmt.QueryRowContext(ctx, tenantID, batchID, s.now().UnixNano()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	var b jobs.Batch
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch: %w", err)
	}
	return &b, nil
}

// ListBatches implements jobs.Backend.
func (s *SQLite) ListBatches(ctx context.Context, tenantID string) ([]string, error) {
	rows, err := s.listBatchStmt.QueryContext(ctx, tenantID, s.now().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return ids, nil
}

// ClaimSubject implements jobs.Backend.
func (s *SQLite) ClaimSubject(ctx context.Context, tenantID, subjectID, jobID string, ttl time.Duration) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to begin claim: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UnixNano()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM subjects WHERE tenant_id = ? AND subject_id = ? AND expires_at > 0 AND expires_at <= ?`,
		tenantID, subjectID, now,
	); err != nil {
		return "", false, fmt.Errorf("failed to expire claim: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO subjects (tenant_id, subject_id, job_id, expires_at) VALUES (?, ?, ?, ?)`,
		tenantID, subjectID, jobID, s.expiresAt(ttl),
	); err != nil {
		return "", false, fmt.Errorf("failed to claim subject: %w", err)
	}

	var holder string
	if err := tx.QueryRowContext(ctx,
		`SELECT job_id FROM subjects WHERE tenant_id = ? AND subject_id = ?`,
		tenantID, subjectID,
	).Scan(&holder); err != nil {
		return "", false, fmt.Errorf("failed to read subject holder: %w", err)
	}
	if holder == jobID {
		if _, err := tx.ExecContext(ctx,
			`UPDATE subjects SET expires_at = ? WHERE tenant_id = ? AND subject_id = ?`,
			s.expiresAt(ttl), tenantID, subjectID,
		); err != nil {
			return "", false, fmt.Errorf("failed to extend claim: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("failed to commit claim: %w", err)
	}
	return holder, holder == jobID, nil
}

// SubjectHolder implements jobs.Backend.
func (s *SQLite) SubjectHolder(ctx context.Context, tenantID, subjectID string) (string, error) {
	var holder string
	err := s.db.QueryRowContext(ctx,
		`SELECT job_id FROM subjects WHERE tenant_id = ? AND subject_id = ? AND (expires_at = 0 OR expires_at > ?)`,
		tenantID, subjectID, s.now().UnixNano(),
	).Scan(&holder)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read subject holder: %w", err)
	}
	return holder, nil
}

// ReleaseSubject implements jobs.Backend.
func (s *SQLite) ReleaseSubject(ctx context.Context, tenantID, subjectID, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM subjects WHERE tenant_id = ? AND subject_id = ? AND job_id = ?`,
		tenantID, subjectID, jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to release subject: %w", err)
	}
	return nil
}

// Cleanup implements jobs.Backend.
func (s *SQLite) Cleanup(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.UnixNano()
	total := 0
	for _, table := range []string{"jobs", "batches", "subjects"} {
		res, err := s.db.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE expires_at > 0 AND expires_at <= ?", cutoff)
		if err != nil {
			return total, fmt.Errorf("failed to cleanup %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("failed to get rows affected: %w", err)
		}
		total += int(n)
	}
	return total, nil
}

// Ping implements jobs.Backend.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements jobs.Backend. It is idempotent.
func (s *SQLite) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		for _, stmt := range []*sql.Stmt{
			s.putJobStmt, s.getJobStmt, s.deleteJobStmt, s.listJobsStmt,
			s.putBatchStmt, s.getBatchStmt, s.listBatchStmt,
		} {
			if stmt != nil {
				stmt.Close()
			}
		}

		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		closeErr = s.db.Close()
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *SQLite) checkpointLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}
