package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr aliases slog.Attr so call sites can stay on this package.
type Attr = slog.Attr

func String(key, value string) Attr          { return slog.String(key, value) }
func Int(key string, value int) Attr         { return slog.Int(key, value) }
func Int64(key string, value int64) Attr     { return slog.Int64(key, value) }
func Float64(key string, value float64) Attr { return slog.Float64(key, value) }
func Bool(key string, value bool) Attr       { return slog.Bool(key, value) }
func Any(key string, value any) Attr         { return slog.Any(key, value) }

func Duration(key string, value time.Duration) Attr {
	return slog.Duration(key, value)
}

// Error produces the conventional "error" attribute. A nil error
// yields an empty value so callers do not need to branch.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Args converts attributes into the variadic any form expected by the
// slog.Logger convenience methods.
func Args(attrs ...Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

// NewNop returns a logger that discards every record.
func NewNop() *slog.Logger {
	return slog.New(noopHandler{})
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (noopHandler) Handle(context.Context, slog.Record) error { return nil }
func (noopHandler) WithAttrs([]slog.Attr) slog.Handler        { return noopHandler{} }
func (noopHandler) WithGroup(string) slog.Handler             { return noopHandler{} }

// NewComponentLogger scopes a logger to one subsystem. Passing a nil
// base returns a nop logger so wiring code can skip nil checks.
func NewComponentLogger(base *slog.Logger, component string) *slog.Logger {
	if base == nil {
		return NewNop()
	}
	return base.With(String(FieldComponent, component))
}

// HasAttrKey reports whether attrs already carries the given key.
func HasAttrKey(attrs []Attr, key string) bool {
	for _, attr := range attrs {
		if attr.Key == key {
			return true
		}
	}
	return false
}

// WarnWithContext logs at warn level and guarantees the event_type and
// impact attributes are present, filling defaults when omitted.
func WarnWithContext(ctx context.Context, logger *slog.Logger, eventType, message string, attrs ...Attr) {
	if logger == nil {
		return
	}
	merged := make([]Attr, 0, len(attrs)+2)
	merged = append(merged, String(FieldEventType, eventType))
	if !HasAttrKey(attrs, FieldImpact) {
		merged = append(merged, String(FieldImpact, "degraded"))
	}
	merged = append(merged, attrs...)
	logger.WarnContext(ctx, message, Args(merged...)...)
}

// ErrorWithContext logs at error level with the same guarantees as
// WarnWithContext plus a default error_hint.
func ErrorWithContext(ctx context.Context, logger *slog.Logger, eventType, message string, attrs ...Attr) {
	if logger == nil {
		return
	}
	merged := make([]Attr, 0, len(attrs)+3)
	merged = append(merged, String(FieldEventType, eventType))
	if !HasAttrKey(attrs, FieldImpact) {
		merged = append(merged, String(FieldImpact, "operation-failed"))
	}
	if !HasAttrKey(attrs, FieldErrorHint) {
		merged = append(merged, String(FieldErrorHint, "check logs for details"))
	}
	merged = append(merged, attrs...)
	logger.ErrorContext(ctx, message, Args(merged...)...)
}
