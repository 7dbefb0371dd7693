// Package executor drives one invocation of a scheduled background job:
// ordered steps, dual-sink audit logging, and finalization (run bookkeeping
// plus resource release) on every exit path.
package executor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobrunner/internal/common"
	"github.com/ternarybob/jobrunner/internal/interfaces"
	"github.com/ternarybob/jobrunner/internal/joblog"
	"github.com/ternarybob/jobrunner/internal/models"
	"github.com/ternarybob/jobrunner/internal/storage/badger"
	"github.com/ternarybob/jobrunner/internal/storage/sqlite"
	"github.com/ternarybob/jobrunner/internal/weather"
)

// Params identify the job instance this invocation executes. JobID may be
// supplied non-positive to request resolution from JobInstanceID.
type Params struct {
	JobAgentID    int64
	JobID         int64
	JobInstanceID int64
	JobScheduleID int64
}

// StepFunc is a custom job step. A returned error fails the run: it is
// recorded through the dual-sink logger and returned to the caller after
// finalization has completed.
type StepFunc func(ctx context.Context, logger *joblog.Logger) error

type step struct {
	name string
	run  StepFunc
}

// RelationalOpener and TableOpener open the storage capabilities from their
// connection descriptors. Injectable so tests substitute fakes without
// conditional imports.
type RelationalOpener func(descriptor string) (interfaces.JobStorage, error)
type TableOpener func(descriptor string) (interfaces.JobLogStorage, error)

// Lifecycle executes one job instance from start to finish. It owns the
// relational connection and the table-store client for the duration of the
// run and releases both on every exit path.
type Lifecycle struct {
	config  *common.Config
	logger  arbor.ILogger
	weather interfaces.WeatherService

	openRelational RelationalOpener
	openTable      TableOpener
	steps          []step
}

// Option configures the Lifecycle.
type Option func(*Lifecycle)

// WithWeatherService substitutes the weather capability.
func WithWeatherService(svc interfaces.WeatherService) Option {
	return func(l *Lifecycle) {
		l.weather = svc
	}
}

// WithRelationalOpener substitutes the relational capability opener.
func WithRelationalOpener(open RelationalOpener) Option {
	return func(l *Lifecycle) {
		l.openRelational = open
	}
}

// WithTableOpener substitutes the table-store capability opener.
func WithTableOpener(open TableOpener) Option {
	return func(l *Lifecycle) {
		l.openTable = open
	}
}

// WithStep registers a custom job step. Steps run in registration order,
// after the built-in steps and before the completion event.
func WithStep(name string, run StepFunc) Option {
	return func(l *Lifecycle) {
		l.steps = append(l.steps, step{name: name, run: run})
	}
}

// New creates a Lifecycle with the default capability openers.
func New(config *common.Config, logger arbor.ILogger, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		config: config,
		logger: logger,
	}

	l.openRelational = func(descriptor string) (interfaces.JobStorage, error) {
		db, err := sqlite.NewSQLiteDB(logger, &config.Storage.SQLite, descriptor)
		if err != nil {
			return nil, err
		}
		return sqlite.NewJobStorage(db, config.Runner.Actor, logger), nil
	}
	l.openTable = func(descriptor string) (interfaces.JobLogStorage, error) {
		db, err := badger.NewBadgerDB(logger, &config.Storage.Badger, descriptor)
		if err != nil {
			return nil, err
		}
		return badger.NewJobLogStorage(db, logger), nil
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.weather == nil {
		l.weather = weather.NewClient(
			weather.WithBaseURL(config.Weather.BaseURL),
			weather.WithLocation(config.Weather.Location),
			weather.WithHTTPClient(&http.Client{Timeout: config.Weather.Timeout()}),
			weather.WithRateLimit(config.Weather.RateLimit),
			weather.WithLogger(logger),
		)
	}

	return l
}

// stepPanicError carries a recovered panic value and its stack trace.
type stepPanicError struct {
	value interface{}
	stack string
}

func (e *stepPanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// Execute runs one invocation of the job. It returns the ordered sequence of
// emitted log messages; on failure the sequence is populated up to the
// failure point plus the error message, and the failure is returned after
// finalization has run.
func (l *Lifecycle) Execute(ctx context.Context, settingsBlob string, params Params) (logs []string, err error) {
	settings := common.ParseSettings(settingsBlob)

	// Init -> Started: acquire capabilities. Connectivity failure disables
	// the sink for the rest of the run; it never fails the run itself.
	var relational interfaces.JobStorage
	if settings.Relational != "" {
		store, openErr := l.openRelational(settings.Relational)
		if openErr != nil {
			l.logger.Warn().Err(openErr).Msg("Could not connect to relational store")
		} else {
			relational = store
		}
	}

	var table interfaces.JobLogStorage
	if settings.Table != "" {
		store, openErr := l.openTable(settings.Table)
		if openErr != nil {
			l.logger.Warn().Err(openErr).Msg("Could not connect to table store")
		} else {
			table = store
		}
	}

	jlog := joblog.New(ctx, relational, table, params.JobID, params.JobInstanceID, l.logger)

	// Adopt the resolved job identifier when the caller supplied none.
	jobID := params.JobID
	if jobID <= 0 && jlog.JobID() > 0 {
		jobID = jlog.JobID()
	}

	recorder := NewRunRecorder(relational, jlog, l.logger)

	// Finalizing -> Closed: bookkeeping and release on every exit path. The
	// incoming context may already be canceled when a step failed, so
	// finalization runs on its own context.
	defer func() {
		finalizeCtx := context.Background()
		recorder.SetLastRunTime(finalizeCtx, jobID, time.Now().UTC())
		if cerr := jlog.Close(); cerr != nil {
			l.logger.Warn().Err(cerr).Msg("Failed to close relational store")
		}
		if table != nil {
			if cerr := table.Close(); cerr != nil {
				l.logger.Warn().Err(cerr).Msg("Failed to close table store")
			}
		}
	}()

	progress := func(message string, level models.LogLevel) {
		jlog.LogProgress(ctx, message, level)
		logs = append(logs, message)
	}

	runErr := l.run(ctx, jlog, recorder, relational, jobID, params, progress)
	if runErr != nil {
		message := fmt.Sprintf("Job execution error: %v", runErr)
		jlog.LogError(ctx, message, failureStack(runErr))
		logs = append(logs, message)
		return logs, runErr
	}

	return logs, nil
}

// run executes the ordered steps. A panic anywhere inside is the
// unhandled-failure path: it is converted to an error carrying the stack and
// handed back for recording and re-raising.
func (l *Lifecycle) run(ctx context.Context, jlog *joblog.Logger, recorder *RunRecorder, relational interfaces.JobStorage, jobID int64, params Params, progress func(string, models.LogLevel)) (rerr error) {
	defer func() {
		if r := recover(); r != nil {
			rerr = &stepPanicError{value: r, stack: string(debug.Stack())}
		}
	}()

	progress("Job started", models.LevelInfo)

	progress(fmt.Sprintf("Executing Job ID: %d, Instance: %d, Schedule: %d, Agent: %d",
		jobID, params.JobInstanceID, params.JobScheduleID, params.JobAgentID), models.LevelInfo)

	progress(fmt.Sprintf("Log partition key: %s", jlog.PartitionKey()), models.LevelInfo)

	if prev := recorder.GetLastRunTime(ctx, jobID); prev != nil {
		progress(fmt.Sprintf("Previous time the job was run: %s", formatLocalClock(*prev)), models.LevelInfo)
	}

	l.reportNextScheduledRun(ctx, relational, jobID, progress)
	l.reportWeather(ctx, progress)

	for _, st := range l.steps {
		l.logger.Info().Str("step", st.name).Msg("Running job step")
		if serr := st.run(ctx, jlog); serr != nil {
			return fmt.Errorf("step %s failed: %w", st.name, serr)
		}
	}

	progress("Job completed successfully!", models.LevelInfo)
	return nil
}

// reportNextScheduledRun announces the next run the schedule would produce.
// Informational only: this runner never decides when to run. Absent schedule
// rows and unparseable expressions are skipped.
func (l *Lifecycle) reportNextScheduledRun(ctx context.Context, relational interfaces.JobStorage, jobID int64, progress func(string, models.LogLevel)) {
	if relational == nil || jobID <= 0 {
		return
	}

	sched, err := relational.GetSchedule(ctx, jobID)
	if err != nil {
		l.logger.Warn().Err(err).Int64("job_id", jobID).Msg("Failed to read job schedule")
		return
	}
	if sched == nil || sched.CronExpression == "" {
		return
	}

	expr, err := cron.ParseStandard(sched.CronExpression)
	if err != nil {
		l.logger.Debug().Err(err).Str("cron", sched.CronExpression).Msg("Schedule expression not parseable")
		return
	}

	progress(fmt.Sprintf("Next scheduled run: %s", formatLocalClock(expr.Next(time.Now()))), models.LevelInfo)
}

// reportWeather fetches current conditions for the fixed location. External
// data failures are Warning-level progress events, never fatal.
func (l *Lifecycle) reportWeather(ctx context.Context, progress func(string, models.LogLevel)) {
	location := l.config.Weather.DisplayLocation
	progress(fmt.Sprintf("Fetching weather data for %s", location), models.LevelInfo)

	fetchCtx, cancel := context.WithTimeout(ctx, l.config.Weather.Timeout())
	defer cancel()

	conditions, err := l.weather.Current(fetchCtx)
	if err != nil {
		if errors.Is(err, weather.ErrBadPayload) {
			progress(fmt.Sprintf("Error processing weather data: %v", err), models.LevelWarning)
		} else {
			progress(fmt.Sprintf("Failed to fetch weather data: %v", err), models.LevelWarning)
		}
		return
	}

	progress(fmt.Sprintf("%s - Temperature: %s°F (%s°C), Humidity: %s%%, Conditions: %s",
		location, conditions.TempF, conditions.TempC, conditions.Humidity, conditions.Description), models.LevelInfo)
}

// formatLocalClock renders a stored UTC timestamp in local time as
// MM/DD/YYYY hh:mm with a lowercase am/pm suffix.
func formatLocalClock(t time.Time) string {
	local := t.Local()
	return local.Format("01/02/2006 03:04") + strings.ToLower(local.Format("PM"))
}

// failureStack returns the stack trace for a failed run: the one captured at
// panic time when available, otherwise the current stack.
func failureStack(err error) string {
	var pe *stepPanicError
	if errors.As(err, &pe) {
		return pe.stack
	}
	return string(debug.Stack())
}
