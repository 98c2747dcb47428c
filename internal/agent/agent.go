package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"vigil/internal/config"
	"vigil/internal/control"
	"vigil/internal/journal"
	"vigil/internal/logging"
	"vigil/internal/notifications"
	"vigil/internal/task"
	"vigil/internal/viewer"
)

// Agent coordinates the background loops and the single-task slot.
type Agent struct {
	cfg      *config.Config
	journal  *journal.Store
	logger   *slog.Logger
	control  control.Client
	viewers  viewer.Factory
	notifier notifications.Service

	heartbeatInterval time.Duration
	pollInterval      time.Duration
	tickInterval      time.Duration

	slot    taskSlot
	watched atomic.Int64
	state   atomic.Pointer[task.Status]

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures optional Agent behavior.
type Option func(*Agent)

// WithHeartbeatInterval overrides the heartbeat cadence.
func WithHeartbeatInterval(interval time.Duration) Option {
	return func(a *Agent) {
		if interval > 0 {
			a.heartbeatInterval = interval
		}
	}
}

// WithPollInterval overrides the task acquisition cadence.
func WithPollInterval(interval time.Duration) Option {
	return func(a *Agent) {
		if interval > 0 {
			a.pollInterval = interval
		}
	}
}

// WithTickInterval overrides the length of one watch minute.
func WithTickInterval(interval time.Duration) Option {
	return func(a *Agent) {
		if interval > 0 {
			a.tickInterval = interval
		}
	}
}

// New constructs an agent with the default notifier.
func New(cfg *config.Config, store *journal.Store, logger *slog.Logger, controlClient control.Client, viewers viewer.Factory) *Agent {
	return NewWithNotifier(cfg, store, logger, controlClient, viewers, notifications.NewService(cfg))
}

// NewWithNotifier constructs an agent with a custom notifier (used in
// tests).
func NewWithNotifier(cfg *config.Config, store *journal.Store, logger *slog.Logger, controlClient control.Client, viewers viewer.Factory, notifier notifications.Service, opts ...Option) *Agent {
	agent := &Agent{
		cfg:               cfg,
		journal:           store,
		logger:            logging.NewComponentLogger(logger, "agent"),
		control:           controlClient,
		viewers:           viewers,
		notifier:          notifier,
		heartbeatInterval: time.Duration(cfg.Control.HeartbeatInterval) * time.Second,
		pollInterval:      time.Duration(cfg.Control.TaskPollInterval) * time.Second,
		tickInterval:      time.Minute,
	}
	for _, opt := range opts {
		opt(agent)
	}
	return agent
}

// Start begins the heartbeat and acquisition loops and returns
// immediately.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return errors.New("agent already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.running = true
	a.wg.Add(2)
	a.mu.Unlock()

	go a.heartbeatLoop(runCtx)
	go a.acquireLoop(runCtx)

	a.logger.Info("agent started",
		logging.Duration("heartbeat_interval", a.heartbeatInterval),
		logging.Duration("poll_interval", a.pollInterval))
	return nil
}

// Stop clears the running flag, cancels the loops, and waits for every
// background activity to return.
func (a *Agent) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	cancel := a.cancel
	a.running = false
	a.cancel = nil
	a.mu.Unlock()

	cancel()
	a.wg.Wait()
	a.logger.Info("agent stopped")
}

// Running reports whether the loops are active.
func (a *Agent) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// StatusSummary represents lightweight agent diagnostics.
type StatusSummary struct {
	Running        bool
	TaskID         int64
	RoomID         string
	State          task.Status
	WatchedMinutes int
	TotalMinutes   int
	Percent        float64
	Attempts       journal.HealthSummary
}

// Status returns the latest run-state information.
func (a *Agent) Status(ctx context.Context) StatusSummary {
	summary := StatusSummary{Running: a.Running()}
	if current := a.slot.Current(); current != nil {
		summary.TaskID = current.ID
		summary.RoomID = current.RoomID
		summary.TotalMinutes = current.TotalWatchTime
		summary.WatchedMinutes = int(a.watched.Load())
		if state := a.state.Load(); state != nil {
			summary.State = *state
		}
		if summary.WatchedMinutes > 0 && summary.TotalMinutes > 0 {
			summary.Percent = task.ProgressPercent(summary.WatchedMinutes-1, summary.TotalMinutes)
		}
	}

	health, err := a.journal.Health(ctx)
	if err != nil {
		a.logger.Warn("failed to read attempt journal", logging.Error(err))
	} else {
		summary.Attempts = health
	}
	return summary
}

// heartbeatLoop announces liveness at a fixed cadence. The first beat
// goes out immediately, failures never stop the loop, and the cadence
// has no backoff.
func (a *Agent) heartbeatLoop(ctx context.Context) {
	defer a.wg.Done()

	for {
		if !a.Running() {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := a.control.Heartbeat(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Warn("heartbeat failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_failed"))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(a.heartbeatInterval):
		}
	}
}

// acquireLoop polls for work only while the task slot is empty. The
// executor it spawns runs independently, so acquisition keeps cycling
// while a task is being watched.
func (a *Agent) acquireLoop(ctx context.Context) {
	defer a.wg.Done()

	for {
		if !a.Running() {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		a.acquireOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(a.pollInterval):
		}
	}
}

func (a *Agent) acquireOnce(ctx context.Context) {
	if a.slot.Occupied() {
		return
	}

	next, err := a.control.NextTask(ctx)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Warn("task fetch failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "task_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check control plane availability"))
		}
		return
	}
	if next == nil {
		return
	}
	if !a.slot.Occupy(next) {
		a.logger.Warn("task slot occupied, dropping assignment",
			logging.Int64(logging.FieldTaskID, next.ID))
		return
	}
	a.watched.Store(int64(next.WatchedTime))
	a.setState(task.StatusStarting)

	a.logger.Info("task acquired",
		logging.Int64(logging.FieldTaskID, next.ID),
		logging.String(logging.FieldRoomID, next.RoomID),
		logging.Int("watched_minutes", next.WatchedTime),
		logging.Int("total_minutes", next.TotalWatchTime))

	a.wg.Add(1)
	go a.execute(ctx, next)
}

// setState mirrors the current lifecycle state for Status readers.
func (a *Agent) setState(state task.Status) {
	a.state.Store(&state)
}
