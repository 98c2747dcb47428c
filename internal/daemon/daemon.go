package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"vigil/internal/agent"
	"vigil/internal/config"
	"vigil/internal/journal"
	"vigil/internal/logging"
	"vigil/internal/notifications"
	"vigil/internal/task"
)

const defaultSessionLimit = 20

// Daemon coordinates the watch agent and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	journal *journal.Store
	agent   *agent.Agent
	logPath string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Agent        agent.StatusSummary
	JournalPath  string
	LockFilePath string
	LogPath      string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *journal.Store, logger *slog.Logger, watcher *agent.Agent, logPath string) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || watcher == nil {
		return nil, errors.New("daemon requires config, journal store, logger, and agent")
	}

	lockPath := cfg.Daemon.LockPath
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		journal:  store,
		agent:    watcher,
		logPath:  logPath,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the agent loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vigil instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.agent.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start agent: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("vigil daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the agent and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.agent.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("vigil daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.journal != nil {
		return d.journal.Close()
	}
	return nil
}

// Sessions lists journaled watch attempts, newest first. A status
// filter takes precedence over the limit.
func (d *Daemon) Sessions(ctx context.Context, statuses []task.Status, limit int) ([]*journal.Attempt, error) {
	if d.journal == nil {
		return nil, errors.New("attempt journal unavailable")
	}
	if len(statuses) > 0 {
		return d.journal.List(ctx, statuses...)
	}
	if limit <= 0 {
		limit = defaultSessionLimit
	}
	return d.journal.Latest(ctx, limit)
}

// ClearSessions removes all journaled attempts.
func (d *Daemon) ClearSessions(ctx context.Context) (int64, error) {
	if d.journal == nil {
		return 0, errors.New("attempt journal unavailable")
	}
	return d.journal.Clear(ctx)
}

// SessionHealth returns aggregate journal diagnostics.
func (d *Daemon) SessionHealth(ctx context.Context) (journal.HealthSummary, error) {
	if d.journal == nil {
		return journal.HealthSummary{}, errors.New("attempt journal unavailable")
	}
	return d.journal.Health(ctx)
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path of the current run log.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Agent:        d.agent.Status(ctx),
		JournalPath:  d.journal.Path(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
	}
}
