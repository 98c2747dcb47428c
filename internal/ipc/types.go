package ipc

import (
	"time"

	"vigil/internal/journal"
)

// StopRequest asks the daemon to halt watching and shut down.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// AttemptStats aggregates journal rows by outcome.
type AttemptStats struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	Completed   int `json:"completed"`
	Failed      int `json:"failed"`
	Interrupted int `json:"interrupted"`
}

// StatusResponse represents combined daemon and agent status. Task
// fields are zero when the slot is empty.
type StatusResponse struct {
	Running        bool         `json:"running"`
	PID            int          `json:"pid"`
	TaskID         int64        `json:"task_id,omitempty"`
	RoomID         string       `json:"room_id,omitempty"`
	State          string       `json:"state,omitempty"`
	WatchedMinutes int          `json:"watched_minutes"`
	TotalMinutes   int          `json:"total_minutes"`
	Percent        float64      `json:"percent"`
	Attempts       AttemptStats `json:"attempts"`
	JournalPath    string       `json:"journal_path"`
	LockPath       string       `json:"lock_path"`
	LogPath        string       `json:"log_path"`
}

// Session is the journal attempt DTO carried over IPC.
type Session struct {
	ID              int64   `json:"id"`
	TaskID          int64   `json:"task_id"`
	RoomID          string  `json:"room_id"`
	Status          string  `json:"status"`
	FailureReason   string  `json:"failure_reason,omitempty"`
	WatchedMinutes  int     `json:"watched_minutes"`
	TotalMinutes    int     `json:"total_minutes"`
	ProgressPercent float64 `json:"progress_percent"`
	LastError       string  `json:"last_error,omitempty"`
	SnapshotPath    string  `json:"snapshot_path,omitempty"`
	StartedAt       string  `json:"started_at"`
	FinishedAt      string  `json:"finished_at,omitempty"`
	Interrupted     bool    `json:"interrupted"`
}

// FromAttempt converts a journal attempt into its IPC representation.
func FromAttempt(attempt *journal.Attempt) Session {
	session := Session{
		ID:              attempt.ID,
		TaskID:          attempt.TaskID,
		RoomID:          attempt.RoomID,
		Status:          string(attempt.Status),
		FailureReason:   string(attempt.FailureReason),
		WatchedMinutes:  attempt.WatchedMinutes,
		TotalMinutes:    attempt.TotalMinutes,
		ProgressPercent: attempt.ProgressPercent,
		LastError:       attempt.LastError,
		SnapshotPath:    attempt.SnapshotPath,
		StartedAt:       attempt.StartedAt.UTC().Format(time.RFC3339),
		Interrupted:     attempt.Interrupted(),
	}
	if attempt.FinishedAt != nil {
		session.FinishedAt = attempt.FinishedAt.UTC().Format(time.RFC3339)
	}
	return session
}

// SessionListRequest filters the session listing. Statuses take
// precedence over the limit.
type SessionListRequest struct {
	Statuses []string `json:"statuses"`
	Limit    int      `json:"limit"`
}

// SessionListResponse contains journaled watch attempts, newest first.
type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
}

// SessionClearRequest removes all journaled attempts.
type SessionClearRequest struct{}

// SessionClearResponse reports the number of removed attempts.
type SessionClearResponse struct {
	Removed int64 `json:"removed"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
