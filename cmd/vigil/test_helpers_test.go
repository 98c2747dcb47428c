package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vigil/internal/agent"
	"vigil/internal/config"
	"vigil/internal/daemon"
	"vigil/internal/ipc"
	"vigil/internal/journal"
	"vigil/internal/logging"
	"vigil/internal/task"
	"vigil/internal/testsupport"
	"vigil/internal/viewer"
)

type idleControl struct{}

func (idleControl) Heartbeat(context.Context) error                           { return nil }
func (idleControl) NextTask(context.Context) (*task.Task, error)              { return nil, nil }
func (idleControl) ReportProgress(context.Context, int64, int, float64) error { return nil }
func (idleControl) ReportError(context.Context, int64, string, string) error  { return nil }

type offlineFactory struct{}

func (offlineFactory) Create(context.Context, map[string]string) (viewer.Session, error) {
	return nil, errors.New("no viewer available in tests")
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *journal.Store
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}

	logger := logging.NewNop()
	watcher := agent.New(cfg, store, logger, idleControl{}, offlineFactory{})
	logPath := filepath.Join(cfg.Paths.LogDir, "cli-test.log")
	d, err := daemon.New(cfg, store, logger, watcher, logPath)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, cfg.Daemon.SocketPath, d, logger, cancel)
	if err != nil {
		cancel()
		d.Close()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	// Mirror daemonrun: the server closes once the signal context ends,
	// which also removes the socket after a stop request.
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		server:     srv,
		socketPath: cfg.Daemon.SocketPath,
		configPath: configPath,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\nsnapshot_dir = %q\n\n[control]\nbase_url = %q\n\n[daemon]\nsocket_path = %q\nlock_path = %q\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.SnapshotDir,
		cfg.Control.BaseURL,
		cfg.Daemon.SocketPath,
		cfg.Daemon.LockPath,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func seedAttempt(t *testing.T, store *journal.Store, taskID int64, roomID string, total int, fail bool) *journal.Attempt {
	t.Helper()
	ctx := context.Background()
	attempt, err := store.StartAttempt(ctx, &task.Task{ID: taskID, RoomID: roomID, TotalWatchTime: total})
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if err := store.SetStatus(ctx, attempt.ID, task.StatusBrowserReady); err != nil {
		t.Fatalf("SetStatus browser_ready: %v", err)
	}
	if err := store.SetStatus(ctx, attempt.ID, task.StatusWatching); err != nil {
		t.Fatalf("SetStatus watching: %v", err)
	}
	if fail {
		if err := store.Fail(ctx, attempt.ID, task.ReasonStreamError, "stream went offline", "/tmp/snapshot.png"); err != nil {
			t.Fatalf("Fail: %v", err)
		}
	} else {
		if err := store.Complete(ctx, attempt.ID); err != nil {
			t.Fatalf("Complete: %v", err)
		}
	}
	return attempt
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
