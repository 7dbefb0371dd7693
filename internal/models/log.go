package models

import "time"

// LogLevel enumerates the severities a job audit event can carry.
type LogLevel string

const (
	LevelInfo    LogLevel = "Info"
	LevelWarning LogLevel = "Warning"
	LevelError   LogLevel = "Error"
)

// LogAction enumerates the table-store entity action types.
type LogAction string

const (
	ActionProgress LogAction = "JobProgress"
	ActionError    LogAction = "JobError"
)

// JobLogTable is the single table-store table receiving job audit entities.
const JobLogTable = "JobLogs"

// JobLogEntity is one row in the JobLogs table store. Entities are written
// under freshly generated row keys and never updated, so the table is
// strictly append-only and ordering is by write time, not by row key.
type JobLogEntity struct {
	PartitionKey  string `badgerhold:"index"`
	RowKey        string
	Action        LogAction
	Details       string
	Level         LogLevel
	Timestamp     time.Time
	JobID         int64
	JobInstanceID int64
}

// ErrorRecord is one relational audit row for a failed run step. Each record
// is keyed by a fresh field descriptor so repeated errors within one run
// accumulate rather than overwrite.
type ErrorRecord struct {
	JobID           int64
	FieldDescriptor string
	Details         string
}

// WeatherConditions is the subset of the weather endpoint response the job
// reports as a progress event.
type WeatherConditions struct {
	TempC       string
	TempF       string
	Humidity    string
	Description string
}
