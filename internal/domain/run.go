package domain

import "time"

// Classification run statuses.
const (
	RunStatusRunning     = "running"
	RunStatusCompleted   = "completed"
	RunStatusNothingToDo = "nothing_to_do"
	RunStatusFailed      = "failed"
)

// ClassificationRun is the persisted summary of one classification pass,
// giving administrators the created/updated/unchanged/skipped breakdown.
type ClassificationRun struct {
	ID         string
	DBType     string
	Status     string
	Created    int
	Updated    int
	Unchanged  int
	Skipped    int
	StartedAt  time.Time
	FinishedAt *time.Time
}
