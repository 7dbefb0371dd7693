package joblog

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobrunner/internal/models"
)

// fakeJobStorage records relational calls and can be made to fail.
type fakeJobStorage struct {
	resolveResult int64
	resolveErr    error
	recordErr     error

	resolveCalls int
	errorRecords []models.ErrorRecord
	closed       int
}

func (f *fakeJobStorage) ResolveJobID(ctx context.Context, jobInstanceID int64) (int64, error) {
	f.resolveCalls++
	return f.resolveResult, f.resolveErr
}

func (f *fakeJobStorage) RecordError(ctx context.Context, jobInstanceID int64, record *models.ErrorRecord) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.errorRecords = append(f.errorRecords, *record)
	return nil
}

func (f *fakeJobStorage) GetLastRunTime(ctx context.Context, jobID int64) (*time.Time, error) {
	return nil, nil
}

func (f *fakeJobStorage) SetLastRunTime(ctx context.Context, jobID int64, t time.Time) error {
	return nil
}

func (f *fakeJobStorage) GetSchedule(ctx context.Context, jobID int64) (*models.JobSchedule, error) {
	return nil, nil
}

func (f *fakeJobStorage) Close() error {
	f.closed++
	return nil
}

// fakeJobLogStorage records table-store inserts and can be made to fail.
type fakeJobLogStorage struct {
	insertErr error
	entities  []models.JobLogEntity
	closed    int
}

func (f *fakeJobLogStorage) InsertEntity(ctx context.Context, entity *models.JobLogEntity) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.entities = append(f.entities, *entity)
	return nil
}

func (f *fakeJobLogStorage) GetEntitiesByPartition(ctx context.Context, partitionKey string, limit int) ([]models.JobLogEntity, error) {
	return f.entities, nil
}

func (f *fakeJobLogStorage) CountEntities(ctx context.Context, partitionKey string) (int, error) {
	return len(f.entities), nil
}

func (f *fakeJobLogStorage) Close() error {
	f.closed++
	return nil
}

func newTestLogger(relational *fakeJobStorage, table *fakeJobLogStorage, jobID, jobInstanceID int64) (*Logger, *bytes.Buffer) {
	var console bytes.Buffer
	l := New(context.Background(), relational, table, jobID, jobInstanceID, arbor.NewLogger(), WithConsoleWriter(&console))
	return l, &console
}

func TestLogger_SuppliedJobIDSkipsResolution(t *testing.T) {
	relational := &fakeJobStorage{resolveResult: 99}
	table := &fakeJobLogStorage{}

	l := New(context.Background(), relational, table, 7, 100, arbor.NewLogger())

	assert.Equal(t, int64(7), l.JobID())
	assert.Equal(t, 0, relational.resolveCalls)
	assert.Equal(t, "7-100", l.PartitionKey())
}

func TestLogger_ResolvesJobIDWhenUnknown(t *testing.T) {
	relational := &fakeJobStorage{resolveResult: 7}
	table := &fakeJobLogStorage{}

	l := New(context.Background(), relational, table, 0, 100, arbor.NewLogger())

	assert.Equal(t, int64(7), l.JobID())
	assert.Equal(t, 1, relational.resolveCalls)
	assert.Equal(t, "7-100", l.PartitionKey())
}

func TestLogger_ResolutionFailureDisablesJobScopedSinks(t *testing.T) {
	relational := &fakeJobStorage{resolveErr: errors.New("db gone")}
	table := &fakeJobLogStorage{}

	l, console := newTestLogger(relational, table, 0, 100)

	assert.Equal(t, int64(0), l.JobID())
	assert.Contains(t, console.String(), "Could not resolve job id from instance")

	// Unknown job: progress goes to console only, never to the table store.
	l.LogProgress(context.Background(), "Job started", models.LevelInfo)
	assert.Empty(t, table.entities)
	assert.Contains(t, console.String(), "Job started")
}

func TestLogger_LogProgressWithoutTableSink(t *testing.T) {
	var console bytes.Buffer
	l := New(context.Background(), &fakeJobStorage{}, nil, 7, 100, arbor.NewLogger(), WithConsoleWriter(&console))

	// No table capability: console only, no panic.
	l.LogProgress(context.Background(), "Job started", models.LevelInfo)
	assert.Contains(t, console.String(), "Job started")
}

func TestLogger_LogProgressWritesBothSinks(t *testing.T) {
	relational := &fakeJobStorage{}
	table := &fakeJobLogStorage{}

	l, console := newTestLogger(relational, table, 7, 100)

	l.LogProgress(context.Background(), "Fetching weather data for Los Angeles, CA", models.LevelInfo)

	assert.Contains(t, console.String(), "Fetching weather data for Los Angeles, CA")
	require.Len(t, table.entities, 1)

	e := table.entities[0]
	assert.Equal(t, "7-100", e.PartitionKey)
	assert.NotEmpty(t, e.RowKey)
	assert.Equal(t, models.ActionProgress, e.Action)
	assert.Equal(t, models.LevelInfo, e.Level)
	assert.Equal(t, "Fetching weather data for Los Angeles, CA", e.Details)
	assert.Equal(t, int64(7), e.JobID)
	assert.Equal(t, int64(100), e.JobInstanceID)
	assert.False(t, e.Timestamp.IsZero())
}

func TestLogger_LogProgressFreshRowKeyPerEvent(t *testing.T) {
	table := &fakeJobLogStorage{}
	l, _ := newTestLogger(&fakeJobStorage{}, table, 7, 100)

	l.LogProgress(context.Background(), "first", models.LevelInfo)
	l.LogProgress(context.Background(), "second", models.LevelInfo)

	require.Len(t, table.entities, 2)
	assert.NotEqual(t, table.entities[0].RowKey, table.entities[1].RowKey)
}

func TestLogger_TableFailureStaysOnConsole(t *testing.T) {
	table := &fakeJobLogStorage{insertErr: errors.New("store offline")}
	l, console := newTestLogger(&fakeJobStorage{}, table, 7, 100)

	// Must not panic or surface the failure to the caller.
	l.LogProgress(context.Background(), "Job started", models.LevelInfo)

	assert.Contains(t, console.String(), "Job started")
	assert.Contains(t, console.String(), "Failed to log to table store")
}

func TestLogger_LogErrorWritesAllSinks(t *testing.T) {
	relational := &fakeJobStorage{}
	table := &fakeJobLogStorage{}

	l, console := newTestLogger(relational, table, 7, 100)

	l.LogError(context.Background(), "Job execution error: boom", "stack trace here")

	assert.Contains(t, console.String(), "Job execution error: boom")

	require.Len(t, relational.errorRecords, 1)
	rec := relational.errorRecords[0]
	assert.Equal(t, int64(7), rec.JobID)
	assert.Contains(t, rec.FieldDescriptor, "Error_")
	assert.Contains(t, rec.Details, "Job execution error: boom")
	assert.Contains(t, rec.Details, "stack trace here")

	require.Len(t, table.entities, 1)
	e := table.entities[0]
	assert.Equal(t, models.ActionError, e.Action)
	assert.Equal(t, models.LevelError, e.Level)
	assert.Contains(t, e.Details, "stack trace here")
}

func TestLogger_LogErrorRelationalFailureStillReachesTable(t *testing.T) {
	relational := &fakeJobStorage{recordErr: errors.New("db gone")}
	table := &fakeJobLogStorage{}

	l, console := newTestLogger(relational, table, 7, 100)

	l.LogError(context.Background(), "Job execution error: boom", "")

	assert.Contains(t, console.String(), "Failed to log error to relational store")
	require.Len(t, table.entities, 1)
	assert.Equal(t, models.ActionError, table.entities[0].Action)
}

func TestLogger_LogErrorDistinctDescriptorsAccumulate(t *testing.T) {
	relational := &fakeJobStorage{}
	l, _ := newTestLogger(relational, &fakeJobLogStorage{}, 7, 100)

	l.LogError(context.Background(), "first failure", "")
	l.LogError(context.Background(), "second failure", "")

	require.Len(t, relational.errorRecords, 2)
	assert.NotEqual(t, relational.errorRecords[0].FieldDescriptor, relational.errorRecords[1].FieldDescriptor)
}

func TestLogger_CloseReleasesRelationalOnce(t *testing.T) {
	relational := &fakeJobStorage{}
	table := &fakeJobLogStorage{}

	l, _ := newTestLogger(relational, table, 7, 100)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	assert.Equal(t, 1, relational.closed)
	// The table store belongs to the execution lifecycle, not the logger.
	assert.Equal(t, 0, table.closed)
}
