package sqlite

// Schema for the orchestrator's relational store. JobInstance carries the
// schedule linkage used for identity resolution; JobInstances carries the
// per-instance status flags the orchestrator reads back; JobData is the
// generic field store holding error records and run bookkeeping rows.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS JobInstance (
	Id INTEGER PRIMARY KEY,
	JobScheduleId INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobinstance_schedule ON JobInstance(JobScheduleId);

CREATE TABLE IF NOT EXISTS JobSchedule (
	Id INTEGER PRIMARY KEY,
	JobId INTEGER NOT NULL,
	CronExpression TEXT
);

CREATE INDEX IF NOT EXISTS idx_jobschedule_job ON JobSchedule(JobId);

CREATE TABLE IF NOT EXISTS JobInstances (
	Id INTEGER PRIMARY KEY,
	HasError INTEGER NOT NULL DEFAULT 0,
	UpdatedDate TEXT,
	UpdatedBy TEXT
);

CREATE TABLE IF NOT EXISTS JobData (
	Id INTEGER PRIMARY KEY AUTOINCREMENT,
	JobId INTEGER NOT NULL,
	JobFieldDescription TEXT NOT NULL,
	JobStringValue TEXT,
	JobDateValue TEXT,
	CreatedDate TEXT,
	CreatedBy TEXT,
	UpdatedDate TEXT,
	UpdatedBy TEXT
);

CREATE INDEX IF NOT EXISTS idx_jobdata_field ON JobData(JobId, JobFieldDescription);
`
