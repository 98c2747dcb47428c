package services

import "context"

type contextKey string

const (
	taskIDKey contextKey = "task_id"
	roomIDKey contextKey = "room_id"
	stageKey  contextKey = "stage"
)

// WithTaskID tags the context with the task being executed.
func WithTaskID(ctx context.Context, taskID int64) context.Context {
	return context.WithValue(ctx, taskIDKey, taskID)
}

// TaskIDFromContext extracts a task id stored by WithTaskID.
func TaskIDFromContext(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	switch v := ctx.Value(taskIDKey).(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// WithRoomID tags the context with the stream room being watched.
func WithRoomID(ctx context.Context, roomID string) context.Context {
	return context.WithValue(ctx, roomIDKey, roomID)
}

// RoomIDFromContext extracts a room id stored by WithRoomID.
func RoomIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(roomIDKey).(string)
	return v, ok && v != ""
}

// WithStage tags the context with the lifecycle stage in progress.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext extracts a stage stored by WithStage.
func StageFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(stageKey).(string)
	return v, ok && v != ""
}
