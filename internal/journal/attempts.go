package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vigil/internal/task"
)

const attemptColumns = "id, task_id, room_id, status, failure_reason, watched_minutes, total_minutes, progress_percent, last_error, snapshot_path, started_at, updated_at, finished_at"

// StartAttempt inserts a new attempt in the starting status and
// returns the stored row.
func (s *Store) StartAttempt(ctx context.Context, assignment *task.Task) (*Attempt, error) {
	if assignment == nil {
		return nil, errors.New("assignment is nil")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO attempts (
            task_id, room_id, status, watched_minutes, total_minutes,
            progress_percent, started_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		assignment.ID,
		assignment.RoomID,
		task.StatusStarting,
		assignment.WatchedTime,
		assignment.TotalWatchTime,
		0.0,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert attempt: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// SetStatus moves an attempt to a new lifecycle status, enforcing the
// allowed transitions.
func (s *Store) SetStatus(ctx context.Context, id int64, status task.Status) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("attempt %d not found", id)
	}
	if !task.ValidTransition(current.Status, status) {
		return fmt.Errorf("illegal transition %s -> %s for attempt %d", current.Status, status, id)
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE attempts SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// SetProgress records the minute counter and derived percentage after
// a completed watch minute.
func (s *Store) SetProgress(ctx context.Context, id int64, watchedMinutes int, percent float64) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE attempts SET watched_minutes = ?, progress_percent = ?, updated_at = ? WHERE id = ?`,
		watchedMinutes,
		percent,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// Complete marks an attempt as finished with its quota met.
func (s *Store) Complete(ctx context.Context, id int64) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("attempt %d not found", id)
	}
	if !task.ValidTransition(current.Status, task.StatusCompleted) {
		return fmt.Errorf("illegal transition %s -> %s for attempt %d", current.Status, task.StatusCompleted, id)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE attempts
         SET status = ?, watched_minutes = total_minutes, progress_percent = 100,
             updated_at = ?, finished_at = ?
         WHERE id = ?`,
		task.StatusCompleted,
		timestamp,
		timestamp,
		id,
	); err != nil {
		return fmt.Errorf("complete attempt: %w", err)
	}
	return nil
}

// Fail marks an attempt as failed with its reason and diagnostics.
func (s *Store) Fail(ctx context.Context, id int64, reason task.FailureReason, message, snapshotPath string) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("attempt %d not found", id)
	}
	if !task.ValidTransition(current.Status, task.StatusFailed) {
		return fmt.Errorf("illegal transition %s -> %s for attempt %d", current.Status, task.StatusFailed, id)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE attempts
         SET status = ?, failure_reason = ?, last_error = ?, snapshot_path = ?,
             updated_at = ?, finished_at = ?
         WHERE id = ?`,
		task.StatusFailed,
		string(reason),
		nullableString(message),
		nullableString(snapshotPath),
		timestamp,
		timestamp,
		id,
	); err != nil {
		return fmt.Errorf("fail attempt: %w", err)
	}
	return nil
}

// Interrupt stamps finished_at without changing the status. Rows in a
// non-terminal status with a finish timestamp mark attempts cut short
// by shutdown.
func (s *Store) Interrupt(ctx context.Context, id int64) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE attempts SET updated_at = ?, finished_at = ? WHERE id = ?`,
		timestamp,
		timestamp,
		id,
	); err != nil {
		return fmt.Errorf("interrupt attempt: %w", err)
	}
	return nil
}

// GetByID fetches an attempt by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Attempt, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+attemptColumns+` FROM attempts WHERE id = ?`, id)
	attempt, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return attempt, nil
}

// Latest returns the most recently started attempts, newest first.
func (s *Store) Latest(ctx context.Context, limit int) ([]*Attempt, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+attemptColumns+` FROM attempts ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list latest attempts: %w", err)
	}
	defer rows.Close()
	return collectAttempts(rows)
}

// List returns attempts filtered by status set, oldest first. No
// statuses means every attempt.
func (s *Store) List(ctx context.Context, statuses ...task.Status) ([]*Attempt, error) {
	ctx = ensureContext(ctx)
	baseQuery := `SELECT ` + attemptColumns + ` FROM attempts`
	orderClause := ` ORDER BY id`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()
	return collectAttempts(rows)
}

// Stats returns a count of attempts grouped by status.
func (s *Store) Stats(ctx context.Context) (map[task.Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM attempts GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("journal stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[task.Status]int)
	for rows.Next() {
		var status task.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates journal state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	ctx = ensureContext(ctx)
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case task.StatusCompleted:
			health.Completed += count
		case task.StatusFailed:
			health.Failed += count
		}
	}

	var interrupted int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM attempts WHERE finished_at IS NOT NULL AND status NOT IN (?, ?)`,
		task.StatusCompleted, task.StatusFailed,
	).Scan(&interrupted)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("count interrupted: %w", err)
	}
	health.Interrupted = interrupted
	health.Active = health.Total - health.Completed - health.Failed - health.Interrupted
	if health.Active < 0 {
		health.Active = 0
	}
	return health, nil
}

// Clear removes every attempt.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ensureContext(ctx), `DELETE FROM attempts`)
	if err != nil {
		return 0, fmt.Errorf("clear attempts: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

func collectAttempts(rows *sql.Rows) ([]*Attempt, error) {
	var attempts []*Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

func scanAttempt(scanner interface{ Scan(dest ...any) error }) (*Attempt, error) {
	var (
		id             int64
		taskID         int64
		roomID         string
		statusStr      string
		failureReason  sql.NullString
		watchedMinutes int
		totalMinutes   int
		percent        sql.NullFloat64
		lastError      sql.NullString
		snapshotPath   sql.NullString
		startedRaw     sql.NullString
		updatedRaw     sql.NullString
		finishedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&taskID,
		&roomID,
		&statusStr,
		&failureReason,
		&watchedMinutes,
		&totalMinutes,
		&percent,
		&lastError,
		&snapshotPath,
		&startedRaw,
		&updatedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	attempt := &Attempt{
		ID:              id,
		TaskID:          taskID,
		RoomID:          roomID,
		Status:          task.Status(statusStr),
		FailureReason:   task.FailureReason(failureReason.String),
		WatchedMinutes:  watchedMinutes,
		TotalMinutes:    totalMinutes,
		ProgressPercent: percent.Float64,
		LastError:       lastError.String,
		SnapshotPath:    snapshotPath.String,
	}
	if started, err := parseTimeString(startedRaw.String); err == nil {
		attempt.StartedAt = started
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		attempt.UpdatedAt = updated
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			attempt.FinishedAt = &finished
		}
	}
	return attempt, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
