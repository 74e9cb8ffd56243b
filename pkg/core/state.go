package core

import "time"

// RunStatus represents the status of a table synchronization run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one synchronization pass for a single table, as recorded in the
// sync journal.
type Run struct {
	ID          string
	DatabaseID  string
	TableID     string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// StageStatus represents the outcome of one orchestration stage.
type StageStatus string

// Stage status constants.
const (
	StageStatusSuccess StageStatus = "success"
	StageStatusFailed  StageStatus = "failed"
)

// Stage names, in execution order.
const (
	StageDatabase = "database"
	StageTable    = "table"
	StageColumns  = "columns"
	StageIndexes  = "indexes"
)

// Stages lists the orchestration stages in the order they run.
var Stages = []string{StageDatabase, StageTable, StageColumns, StageIndexes}

// StageRun is the recorded outcome of one stage within a run.
type StageRun struct {
	RunID       string
	Stage       string
	Status      StageStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Error       string
	DurationMS  int64
}
