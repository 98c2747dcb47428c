package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vigil/internal/services"
)

func TestNewRejectsUnknownLevelAndFormat(t *testing.T) {
	if _, err := New(Options{Level: "verbose"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewWritesToLogFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "nested", "vigil.log")

	logger, err := New(Options{
		Level:       "debug",
		Format:      "console",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("stream opened", String("room_id", "21452505"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "stream opened") {
		t.Fatalf("log line missing message: %q", line)
	}
	if !strings.Contains(line, "room_id=21452505") {
		t.Fatalf("log line missing attribute: %q", line)
	}
}

func TestConsoleHandlerRendersComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := NewComponentLogger(slog.New(newConsoleHandler(&buf, &buf, slog.LevelDebug)), "agent")

	logger.Info("heartbeat sent", Int("attempt", 1))

	line := buf.String()
	if !strings.Contains(line, "[agent]") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "INFO") {
		t.Fatalf("expected level label, got %q", line)
	}
	if !strings.Contains(line, "attempt=1") {
		t.Fatalf("expected flattened attribute, got %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should render as prefix only, got %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, &buf, slog.LevelDebug))

	logger.Warn("activity failed", String("error", "element not found"))

	if !strings.Contains(buf.String(), `error="element not found"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestConsoleHandlerRoutesErrorsToStderrWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := slog.New(newConsoleHandler(&out, &errOut, slog.LevelDebug))

	logger.Info("fine")
	logger.Error("broken")

	if !strings.Contains(out.String(), "fine") || strings.Contains(out.String(), "broken") {
		t.Fatalf("stdout writer got %q", out.String())
	}
	if !strings.Contains(errOut.String(), "broken") {
		t.Fatalf("stderr writer got %q", errOut.String())
	}
}

func TestContextFieldsCarriesTaskCorrelation(t *testing.T) {
	ctx := services.WithTaskID(context.Background(), 42)
	ctx = services.WithRoomID(ctx, "21452505")
	ctx = services.WithStage(ctx, "watching")

	attrs := ContextFields(ctx)
	if !HasAttrKey(attrs, FieldTaskID) {
		t.Fatal("missing task_id attribute")
	}
	if !HasAttrKey(attrs, FieldRoomID) {
		t.Fatal("missing room_id attribute")
	}
	if !HasAttrKey(attrs, FieldState) {
		t.Fatal("missing state attribute")
	}
}

func TestErrorWithContextFillsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, &buf, slog.LevelDebug))

	ErrorWithContext(context.Background(), logger, "stream-error", "stream lost")

	line := buf.String()
	if !strings.Contains(line, "event_type=stream-error") {
		t.Fatalf("expected event_type, got %q", line)
	}
	if !strings.Contains(line, "error_hint=") {
		t.Fatalf("expected default error_hint, got %q", line)
	}
	if !strings.Contains(line, "impact=operation-failed") {
		t.Fatalf("expected default impact, got %q", line)
	}
}

func TestCleanupOldLogsPrunesByAgeAndCount(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	write := func(name string, age time.Duration) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		stamp := now.Add(-age)
		if err := os.Chtimes(path, stamp, stamp); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
		return path
	}

	old := write("vigil-20250101T000000.000Z.log", 80*24*time.Hour)
	recent := write("vigil-20260820T000000.000Z.log", time.Hour)
	third := write("vigil-20260810T000000.000Z.log", 10*24*time.Hour)
	unrelated := write("notes.txt", 400*24*time.Hour)

	err := CleanupOldLogs([]RetentionTarget{{
		Dir:      dir,
		Prefix:   "vigil-",
		Suffix:   ".log",
		MaxAge:   30 * 24 * time.Hour,
		MaxCount: 2,
	}}, now)
	if err != nil {
		t.Fatalf("CleanupOldLogs: %v", err)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expected aged-out log to be removed")
	}
	if _, err := os.Stat(recent); err != nil {
		t.Fatal("expected recent log to survive")
	}
	if _, err := os.Stat(third); err != nil {
		t.Fatal("expected second-newest log to survive count limit")
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Fatal("expected non-matching file to be untouched")
	}
}
