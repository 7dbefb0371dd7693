package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/jobrunner/internal/models"
)

// JobStorage - relational capability for job identity, error auditing, and
// run bookkeeping. Injected at construction so tests substitute fakes.
type JobStorage interface {
	// ResolveJobID resolves the owning job for a job instance via the
	// JobInstance/JobSchedule join. Returns (0, nil) when no row matches.
	ResolveJobID(ctx context.Context, jobInstanceID int64) (int64, error)

	// RecordError marks the job instance as errored and, when the record
	// names a job (JobID > 0), inserts one accumulating error row. Both
	// writes happen in a single committed transaction. The instance update
	// is idempotent and may be issued multiple times per run.
	RecordError(ctx context.Context, jobInstanceID int64, record *models.ErrorRecord) error

	// GetLastRunTime returns the stored last-run timestamp for the job, or
	// nil when no run record exists.
	GetLastRunTime(ctx context.Context, jobID int64) (*time.Time, error)

	// SetLastRunTime upserts the single run record row for the job: created
	// if absent, updated in place if present.
	SetLastRunTime(ctx context.Context, jobID int64, t time.Time) error

	// GetSchedule returns the schedule owning the job, or nil when none.
	GetSchedule(ctx context.Context, jobID int64) (*models.JobSchedule, error)

	// Close releases the underlying connection. Safe to call more than once.
	Close() error
}

// JobLogStorage - table-store capability for append-only job audit entities
type JobLogStorage interface {
	// InsertEntity writes one entity under a freshly generated row key.
	InsertEntity(ctx context.Context, entity *models.JobLogEntity) error

	// GetEntitiesByPartition returns entities for one job+instance pair,
	// ordered by write time.
	GetEntitiesByPartition(ctx context.Context, partitionKey string, limit int) ([]models.JobLogEntity, error)

	// CountEntities counts entities sharing a partition key.
	CountEntities(ctx context.Context, partitionKey string) (int, error)

	// Close releases the underlying store.
	Close() error
}
