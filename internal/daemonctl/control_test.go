package daemonctl_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"vigil/internal/daemonctl"
	"vigil/internal/journal"
	"vigil/internal/task"
	"vigil/internal/testsupport"
)

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open failed: %v", err)
	}
	ctx := context.Background()
	attempt, err := store.StartAttempt(ctx, &task.Task{ID: 15, RoomID: "88", TotalWatchTime: 3})
	if err != nil {
		t.Fatalf("StartAttempt failed: %v", err)
	}
	if err := store.SetStatus(ctx, attempt.ID, task.StatusBrowserReady); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if err := store.SetStatus(ctx, attempt.ID, task.StatusWatching); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if err := store.Complete(ctx, attempt.ID); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	snapshot, err := daemonctl.BuildStatusSnapshot(ctx, cfg.Daemon.SocketPath, cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot failed: %v", err)
	}
	if snapshot.Running {
		t.Fatal("expected offline snapshot to report not running")
	}
	if snapshot.Attempts.Total != 1 || snapshot.Attempts.Completed != 1 {
		t.Fatalf("unexpected attempt stats: %#v", snapshot.Attempts)
	}
	if snapshot.JournalPath != cfg.Paths.JournalPath {
		t.Fatalf("expected journal path fallback, got %s", snapshot.JournalPath)
	}
}

func TestStopAndTerminateWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := daemonctl.StopAndTerminate(cfg.Daemon.SocketPath, cfg, time.Second)
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestProcessInfoWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	running, pid, err := daemonctl.ProcessInfo(cfg.Daemon.SocketPath)
	if err != nil {
		t.Fatalf("ProcessInfo failed: %v", err)
	}
	if running || pid != 0 {
		t.Fatalf("expected no daemon, got running=%v pid=%d", running, pid)
	}
}
