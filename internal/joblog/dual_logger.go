// Package joblog implements the dual-sink job audit logger: every event goes
// to the console stream, and job-scoped events additionally go to the
// relational store and the append-only table store under a shared partition
// key. A failure in any one sink never blocks the others or the calling step.
package joblog

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobrunner/internal/common"
	"github.com/ternarybob/jobrunner/internal/interfaces"
	"github.com/ternarybob/jobrunner/internal/models"
)

// Logger emits job progress and error events to console, relational store,
// and table store. The storage capabilities are borrowed, not owned; Close
// releases the relational capability on the owner's behalf.
type Logger struct {
	relational interfaces.JobStorage    // nil when the relational sink is disabled
	table      interfaces.JobLogStorage // nil when the table-store sink is disabled

	jobID         int64
	jobInstanceID int64

	console log.Logger
	applog  arbor.ILogger

	closeOnce sync.Once
	closeErr  error
}

// Option configures the Logger.
type Option func(*Logger)

// WithConsoleWriter redirects the console stream, primarily for tests.
func WithConsoleWriter(w io.Writer) Option {
	return func(l *Logger) {
		l.console.Writer = &log.ConsoleWriter{ColorOutput: false, Writer: w}
	}
}

// New constructs the dual-sink logger. When the caller supplies no job
// identifier (jobID <= 0), the owning job is resolved once from the job
// instance via the relational capability; resolution failure degrades to
// jobID 0, which disables the job-scoped sinks rather than producing a
// degenerate partition key.
func New(ctx context.Context, relational interfaces.JobStorage, table interfaces.JobLogStorage, jobID, jobInstanceID int64, applog arbor.ILogger, opts ...Option) *Logger {
	l := &Logger{
		relational:    relational,
		table:         table,
		jobID:         jobID,
		jobInstanceID: jobInstanceID,
		applog:        applog,
		console: log.Logger{
			Level:        log.InfoLevel,
			TimeFormat:   "2006-01-02 15:04:05",
			TimeLocation: time.UTC,
			Writer:       &log.ConsoleWriter{ColorOutput: false, Writer: os.Stdout},
		},
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.jobID <= 0 && relational != nil {
		resolved, err := relational.ResolveJobID(ctx, jobInstanceID)
		if err != nil {
			l.console.Warn().Msgf("Could not resolve job id from instance: %v", err)
			l.applog.Warn().Err(err).Int64("job_instance_id", jobInstanceID).Msg("Job identity resolution failed")
		} else {
			l.jobID = resolved
		}
	}

	return l
}

// JobID returns the job identifier the logger operates under: the supplied
// value, or the resolved one, or 0 when unknown.
func (l *Logger) JobID() int64 {
	return l.jobID
}

// PartitionKey returns the table-store partition key for this run. Computed
// from the resolved job identifier and stable for the lifetime of the
// instance.
func (l *Logger) PartitionKey() string {
	return models.JobInstance{JobID: l.jobID, JobInstanceID: l.jobInstanceID}.PartitionKey()
}

// LogProgress writes a progress event. Console always; the table store when
// that sink is present and the job is known. A table-store failure is
// reported to the console only and never reaches the caller.
func (l *Logger) LogProgress(ctx context.Context, message string, level models.LogLevel) {
	l.consoleWrite(level, message)

	if l.table == nil || l.jobID <= 0 {
		return
	}

	entity := &models.JobLogEntity{
		PartitionKey:  l.PartitionKey(),
		RowKey:        common.NewRowKey(),
		Action:        models.ActionProgress,
		Details:       message,
		Level:         level,
		Timestamp:     time.Now().UTC(),
		JobID:         l.jobID,
		JobInstanceID: l.jobInstanceID,
	}
	if err := l.table.InsertEntity(ctx, entity); err != nil {
		l.console.Error().Msgf("Failed to log to table store: %v", err)
	}
}

// LogError writes an error event to all three sinks. Each sink is attempted
// regardless of failures in the ones before it; sink failures are reported
// to the console and swallowed so instrumentation can never mask the primary
// execution outcome.
func (l *Logger) LogError(ctx context.Context, message, stackTrace string) {
	l.console.Error().Msg(message)

	details := message
	if stackTrace != "" {
		details = message + "\n" + stackTrace
	}

	if l.relational != nil && l.jobInstanceID > 0 {
		record := &models.ErrorRecord{
			JobID:           l.jobID,
			FieldDescriptor: common.NewErrorFieldDescriptor(time.Now()),
			Details:         details,
		}
		if err := l.relational.RecordError(ctx, l.jobInstanceID, record); err != nil {
			l.console.Warn().Msgf("Failed to log error to relational store: %v", err)
		}
	}

	if l.table != nil && l.jobID > 0 {
		entity := &models.JobLogEntity{
			PartitionKey:  l.PartitionKey(),
			RowKey:        common.NewRowKey(),
			Action:        models.ActionError,
			Details:       details,
			Level:         models.LevelError,
			Timestamp:     time.Now().UTC(),
			JobID:         l.jobID,
			JobInstanceID: l.jobInstanceID,
		}
		if err := l.table.InsertEntity(ctx, entity); err != nil {
			l.console.Error().Msgf("Failed to log error to table store: %v", err)
		}
	}
}

// ConsoleWarn writes a warning to the console stream only, bypassing the
// persistent sinks.
func (l *Logger) ConsoleWarn(message string) {
	l.console.Warn().Msg(message)
}

// Close releases the relational capability if held. Idempotent and safe to
// call when no capability exists.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		if l.relational != nil {
			l.closeErr = l.relational.Close()
		}
	})
	return l.closeErr
}

func (l *Logger) consoleWrite(level models.LogLevel, message string) {
	switch level {
	case models.LevelWarning:
		l.console.Warn().Msg(message)
	case models.LevelError:
		l.console.Error().Msg(message)
	default:
		l.console.Info().Msg(message)
	}
}
