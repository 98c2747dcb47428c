package control

import (
	"context"
	"encoding/json"

	"vigil/internal/task"
)

// Client is the control-plane surface the agent depends on. The
// implementation reports liveness, pulls assignments, and pushes
// watch progress and stream failures.
type Client interface {
	// Heartbeat announces the client as alive.
	Heartbeat(ctx context.Context) error
	// NextTask asks for an assignment. A nil task with nil error means
	// nothing is queued for this client.
	NextTask(ctx context.Context) (*task.Task, error)
	// ReportProgress pushes the accumulated minutes and derived
	// percentage for a running task.
	ReportProgress(ctx context.Context, taskID int64, watchedMinutes int, percent float64) error
	// ReportError pushes a stream failure, optionally with a snapshot
	// file path captured at failure time.
	ReportError(ctx context.Context, taskID int64, message, snapshotPath string) error
}

// envelope is the response wrapper used by every control-plane
// endpoint. Code zero means success; data carries the payload when
// the endpoint has one.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type heartbeatRequest struct {
	ClientID string `json:"client_id"`
}

type progressRequest struct {
	TaskID      int64   `json:"task_id"`
	WatchedTime int     `json:"watched_time"`
	Progress    float64 `json:"progress"`
}

type errorRequest struct {
	TaskID         int64  `json:"task_id"`
	ErrorMessage   string `json:"error_message"`
	ScreenshotPath string `json:"screenshot_path,omitempty"`
}
