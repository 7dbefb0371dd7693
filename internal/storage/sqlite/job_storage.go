package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobrunner/internal/interfaces"
	"github.com/ternarybob/jobrunner/internal/models"
)

// timeFormat is how timestamps are stored in JobData date columns.
const timeFormat = time.RFC3339Nano

// lastRunDescriptor is the fixed field descriptor identifying the single
// run-bookkeeping row per job.
const lastRunDescriptor = "Last Job Run Time"

// JobStorage implements the relational JobStorage interface for SQLite
type JobStorage struct {
	db     *SQLiteDB
	actor  string
	logger arbor.ILogger
	mu     sync.Mutex // Prevents SQLITE_BUSY errors on concurrent writes

	closeOnce sync.Once
	closeErr  error
}

// NewJobStorage creates a new JobStorage instance. The actor names the
// audit-column author for all writes.
func NewJobStorage(db *SQLiteDB, actor string, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		actor:  actor,
		logger: logger,
	}
}

// ResolveJobID resolves the owning job identifier for a job instance via the
// JobInstance/JobSchedule join. No matching row is (0, nil), not an error.
func (s *JobStorage) ResolveJobID(ctx context.Context, jobInstanceID int64) (int64, error) {
	if jobInstanceID <= 0 {
		return 0, nil
	}

	query := `
		SELECT js.JobId
		FROM JobInstance ji
		JOIN JobSchedule js ON ji.JobScheduleId = js.Id
		WHERE ji.Id = ?
	`

	var jobID int64
	err := s.db.db.QueryRowContext(ctx, query, jobInstanceID).Scan(&jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve job id: %w", err)
	}

	return jobID, nil
}

// RecordError marks the job instance as errored and inserts one error row
// when the record names a job, in a single committed transaction. The
// instance update is idempotent: re-marking only refreshes the audit columns.
func (s *JobStorage) RecordError(ctx context.Context, jobInstanceID int64, record *models.ErrorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(timeFormat)

	if _, err := tx.ExecContext(ctx, `
		UPDATE JobInstances
		SET HasError = 1, UpdatedDate = ?, UpdatedBy = ?
		WHERE Id = ?
	`, now, s.actor, jobInstanceID); err != nil {
		return fmt.Errorf("failed to mark job instance errored: %w", err)
	}

	if record != nil && record.JobID > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO JobData (JobId, JobFieldDescription, JobStringValue, CreatedDate, CreatedBy)
			VALUES (?, ?, ?, ?, ?)
		`, record.JobID, record.FieldDescriptor, record.Details, now, s.actor); err != nil {
			return fmt.Errorf("failed to insert error record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit error record: %w", err)
	}

	return nil
}

// GetLastRunTime returns the stored last-run timestamp for the job, or nil
// when no run record exists.
func (s *JobStorage) GetLastRunTime(ctx context.Context, jobID int64) (*time.Time, error) {
	query := `
		SELECT JobDateValue
		FROM JobData
		WHERE JobId = ? AND JobFieldDescription = ?
	`

	var raw sql.NullString
	err := s.db.db.QueryRowContext(ctx, query, jobID, lastRunDescriptor).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last run time: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}

	t, err := time.Parse(timeFormat, raw.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse last run time: %w", err)
	}

	return &t, nil
}

// SetLastRunTime upserts the single run record row for the job. The
// read-then-write runs inside one transaction, so within a process the row
// count invariant holds; two runner processes racing here resolve to
// last-writer-wins on the one row.
func (s *JobStorage) SetLastRunTime(ctx context.Context, jobID int64, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		SELECT Id FROM JobData
		WHERE JobId = ? AND JobFieldDescription = ?
	`, jobID, lastRunDescriptor).Scan(&id)

	now := time.Now().UTC().Format(timeFormat)
	value := t.UTC().Format(timeFormat)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO JobData (JobId, JobFieldDescription, JobDateValue, CreatedDate, CreatedBy)
			VALUES (?, ?, ?, ?, ?)
		`, jobID, lastRunDescriptor, value, now, s.actor)
		if err != nil {
			return fmt.Errorf("failed to insert run record: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to look up run record: %w", err)
	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE JobData
			SET JobDateValue = ?, UpdatedDate = ?, UpdatedBy = ?
			WHERE Id = ?
		`, value, now, s.actor, id)
		if err != nil {
			return fmt.Errorf("failed to update run record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run record: %w", err)
	}

	return nil
}

// GetSchedule returns the schedule owning the job, or nil when none exists.
func (s *JobStorage) GetSchedule(ctx context.Context, jobID int64) (*models.JobSchedule, error) {
	query := `
		SELECT Id, JobId, COALESCE(CronExpression, '')
		FROM JobSchedule
		WHERE JobId = ?
	`

	var sched models.JobSchedule
	err := s.db.db.QueryRowContext(ctx, query, jobID).Scan(&sched.ID, &sched.JobID, &sched.CronExpression)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job schedule: %w", err)
	}

	return &sched, nil
}

// Close releases the underlying connection. Idempotent.
func (s *JobStorage) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}
