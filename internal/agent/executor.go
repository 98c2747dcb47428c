package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vigil/internal/journal"
	"vigil/internal/logging"
	"vigil/internal/services"
	"vigil/internal/task"
	"vigil/internal/viewer"
)

// execute drives one task attempt through the watch state machine. The
// slot is cleared on every exit path so acquisition can pick up new
// work.
func (a *Agent) execute(ctx context.Context, current *task.Task) {
	defer a.wg.Done()
	defer a.slot.Clear()

	logger := a.logger.With(
		logging.Int64(logging.FieldTaskID, current.ID),
		logging.String(logging.FieldRoomID, current.RoomID),
	)

	attempt := a.startAttempt(ctx, logger, current)

	session, err := a.viewers.Create(ctx, current.Cookies)
	if err != nil {
		if ctx.Err() != nil {
			a.finishInterrupted(logger, attempt, nil)
			return
		}
		a.finishFailed(ctx, logger, attempt, current, nil, err)
		return
	}
	a.journalStatus(ctx, logger, attempt, task.StatusBrowserReady)

	if err := session.OpenStream(ctx, current.RoomID); err != nil {
		if ctx.Err() != nil {
			a.finishInterrupted(logger, attempt, session)
			return
		}
		a.finishFailed(ctx, logger, attempt, current, session, err)
		return
	}
	a.journalStatus(ctx, logger, attempt, task.StatusWatching)

	if err := a.notifier.NotifyTaskStarted(ctx, current.ID, current.RoomID); err != nil {
		logger.Debug("start notification failed", logging.Error(err))
	}
	logger.Info("watching stream",
		logging.Int("remaining_minutes", current.RemainingMinutes()))

	completed, watchErr := a.watch(ctx, logger, attempt, current, session)
	if watchErr != nil {
		a.finishFailed(ctx, logger, attempt, current, session, watchErr)
		return
	}

	_ = session.Close(context.Background())

	if !completed {
		a.finishInterrupted(logger, attempt, nil)
		return
	}

	a.journalComplete(logger, attempt)
	if err := a.notifier.NotifyTaskCompleted(ctx, current.ID, current.RoomID, current.TotalWatchTime); err != nil {
		logger.Debug("completion notification failed", logging.Error(err))
	}
	logger.Info("watch task complete",
		logging.Int("total_minutes", current.TotalWatchTime))
}

// watch runs the minute loop from the already-watched mark to the
// quota. It returns completed=false when the agent stopped first and a
// non-nil error when the stream broke.
func (a *Agent) watch(ctx context.Context, logger *slog.Logger, attempt *journal.Attempt, current *task.Task, session viewer.Session) (bool, error) {
	total := current.TotalWatchTime
	for minute := current.WatchedTime; minute < total; minute++ {
		if !a.Running() {
			return false, nil
		}

		if err := session.Alive(ctx); err != nil {
			if ctx.Err() != nil {
				return false, nil
			}
			return false, err
		}

		// One activity per minute; a failed activity never ends the
		// watch.
		if err := session.ActivityTick(ctx); err != nil {
			logger.Debug("activity tick absorbed", logging.Error(err))
		}

		select {
		case <-ctx.Done():
			return false, nil
		case <-time.After(a.tickInterval):
		}

		watched := minute + 1
		percent := task.ProgressPercent(minute, total)
		a.watched.Store(int64(watched))

		if attempt != nil {
			if err := a.journal.SetProgress(ctx, attempt.ID, watched, percent); err != nil {
				logger.Warn("progress not journaled", logging.Error(err))
			}
		}
		if err := a.control.ReportProgress(ctx, current.ID, watched, percent); err != nil {
			logger.Warn("progress report failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "progress_report_failed"))
		} else {
			logger.Info("progress reported",
				logging.Int("watched_minutes", watched),
				logging.Int("total_minutes", total),
				logging.Float64("percent", percent))
		}
	}
	return true, nil
}

// finishFailed handles terminal failure. Stream errors are evidenced
// with a snapshot and reported upstream; session-init and open
// failures never reach the server.
func (a *Agent) finishFailed(ctx context.Context, logger *slog.Logger, attempt *journal.Attempt, current *task.Task, session viewer.Session, cause error) {
	reason := services.ClassifyFailure(cause)

	snapshotPath := ""
	if reason.Reportable() && session != nil {
		path, snapErr := session.Snapshot(ctx, fmt.Sprintf("task_%d", current.ID))
		if snapErr != nil {
			logger.Warn("snapshot not captured", logging.Error(snapErr))
		} else {
			snapshotPath = path
		}
		if err := a.control.ReportError(ctx, current.ID, cause.Error(), snapshotPath); err != nil {
			logger.Warn("error report failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "error_report_failed"))
		}
	}

	if session != nil {
		_ = session.Close(context.Background())
	}

	if attempt != nil {
		if err := a.journal.Fail(context.Background(), attempt.ID, reason, cause.Error(), snapshotPath); err != nil {
			logger.Warn("failure not journaled", logging.Error(err))
		}
	}

	if err := a.notifier.NotifyTaskFailed(ctx, current.ID, current.RoomID, reason, cause.Error()); err != nil {
		logger.Debug("failure notification failed", logging.Error(err))
	}

	logger.Error("watch task failed",
		logging.String("reason", string(reason)),
		logging.Error(cause),
		logging.String(logging.FieldEventType, "task_failed"))
}

// finishInterrupted closes out an attempt cut short by a deliberate
// stop. Nothing is reported upstream and no completion is recorded.
func (a *Agent) finishInterrupted(logger *slog.Logger, attempt *journal.Attempt, session viewer.Session) {
	if session != nil {
		_ = session.Close(context.Background())
	}
	if attempt != nil {
		if err := a.journal.Interrupt(context.Background(), attempt.ID); err != nil {
			logger.Warn("interrupt not journaled", logging.Error(err))
		}
	}
	logger.Info("task stopped before completion")
}

func (a *Agent) startAttempt(ctx context.Context, logger *slog.Logger, current *task.Task) *journal.Attempt {
	attempt, err := a.journal.StartAttempt(ctx, current)
	if err != nil {
		logger.Warn("attempt not journaled", logging.Error(err))
		return nil
	}
	return attempt
}

func (a *Agent) journalStatus(ctx context.Context, logger *slog.Logger, attempt *journal.Attempt, status task.Status) {
	a.setState(status)
	if attempt == nil {
		return
	}
	if err := a.journal.SetStatus(ctx, attempt.ID, status); err != nil {
		logger.Warn("status not journaled",
			logging.String(logging.FieldState, string(status)),
			logging.Error(err))
	}
}

func (a *Agent) journalComplete(logger *slog.Logger, attempt *journal.Attempt) {
	if attempt == nil {
		return
	}
	if err := a.journal.Complete(context.Background(), attempt.ID); err != nil {
		logger.Warn("completion not journaled", logging.Error(err))
	}
}
