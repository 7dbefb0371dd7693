package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobrunner/internal/interfaces"
)

// consoleWarner is the slice of the dual-sink logger the recorder needs for
// its warn-only failure policy.
type consoleWarner interface {
	ConsoleWarn(message string)
}

// RunRecorder reads and writes the single last-run-time fact per job. Every
// failure here is a warning: bookkeeping must never change the run outcome.
type RunRecorder struct {
	storage interfaces.JobStorage // nil when no relational capability is held
	console consoleWarner
	logger  arbor.ILogger
}

// NewRunRecorder creates a new RunRecorder instance
func NewRunRecorder(storage interfaces.JobStorage, console consoleWarner, logger arbor.ILogger) *RunRecorder {
	return &RunRecorder{
		storage: storage,
		console: console,
		logger:  logger,
	}
}

// GetLastRunTime returns the previous run timestamp, or nil when there is no
// capability, no row, or the read fails.
func (r *RunRecorder) GetLastRunTime(ctx context.Context, jobID int64) *time.Time {
	if r.storage == nil || jobID <= 0 {
		return nil
	}

	t, err := r.storage.GetLastRunTime(ctx, jobID)
	if err != nil {
		r.console.ConsoleWarn(fmt.Sprintf("Warning: Failed to read last job run time: %v", err))
		r.logger.Warn().Err(err).Int64("job_id", jobID).Msg("Failed to read last job run time")
		return nil
	}

	return t
}

// SetLastRunTime upserts the run record. Called exactly once per execution,
// during finalization, with the finalization-time timestamp.
func (r *RunRecorder) SetLastRunTime(ctx context.Context, jobID int64, t time.Time) {
	if r.storage == nil || jobID <= 0 {
		return
	}

	if err := r.storage.SetLastRunTime(ctx, jobID, t); err != nil {
		r.console.ConsoleWarn(fmt.Sprintf("Warning: Failed to update last job run time: %v", err))
		r.logger.Warn().Err(err).Int64("job_id", jobID).Msg("Failed to update last job run time")
	}
}
