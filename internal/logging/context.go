package logging

import (
	"context"
	"log/slog"

	"vigil/internal/services"
)

// Shared attribute keys. Console rendering and alerting depend on
// these exact names, so components must not invent variants.
const (
	FieldComponent = "component"
	FieldTaskID    = "task_id"
	FieldRoomID    = "room_id"
	FieldState     = "state"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldImpact    = "impact"
	FieldAlert     = "alert"
)

// ContextFields extracts correlation attributes carried on the
// context by the services package.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	attrs := make([]Attr, 0, 3)
	if taskID, ok := services.TaskIDFromContext(ctx); ok {
		attrs = append(attrs, Int64(FieldTaskID, taskID))
	}
	if roomID, ok := services.RoomIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldRoomID, roomID))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		attrs = append(attrs, String(FieldState, stage))
	}
	return attrs
}

// WithContext returns a logger pre-populated with the context's
// correlation attributes.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
