package models

import "fmt"

// JobInstance identifies one scheduled execution attempt of a job. Created at
// invocation and immutable for the life of the run.
type JobInstance struct {
	JobAgentID    int64
	JobID         int64 // resolved; 0 when unknown
	JobInstanceID int64
	JobScheduleID int64
}

// PartitionKey derives the table-store partition key grouping all log
// entries for this job+instance pair.
// Format: "{jobId}-{jobInstanceId}"
func (j JobInstance) PartitionKey() string {
	return fmt.Sprintf("%d-%d", j.JobID, j.JobInstanceID)
}

// JobSchedule is the recurring definition that produces job instances.
type JobSchedule struct {
	ID             int64
	JobID          int64
	CronExpression string
}
