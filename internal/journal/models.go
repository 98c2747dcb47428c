package journal

import (
	"time"

	"vigil/internal/task"
)

// Attempt is one recorded watch attempt. A row with a non-terminal
// status and a finished_at timestamp marks an attempt interrupted by
// shutdown.
type Attempt struct {
	ID              int64
	TaskID          int64
	RoomID          string
	Status          task.Status
	FailureReason   task.FailureReason
	WatchedMinutes  int
	TotalMinutes    int
	ProgressPercent float64
	LastError       string
	SnapshotPath    string
	StartedAt       time.Time
	UpdatedAt       time.Time
	FinishedAt      *time.Time
}

// Interrupted reports whether the attempt ended without reaching a
// terminal status.
func (a *Attempt) Interrupted() bool {
	return a != nil && a.FinishedAt != nil && !a.Status.IsTerminal()
}

// HealthSummary aggregates journal state for diagnostic output.
type HealthSummary struct {
	Total       int
	Active      int
	Completed   int
	Failed      int
	Interrupted int
}
