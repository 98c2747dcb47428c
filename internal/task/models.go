package task

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Status tracks a watch attempt through its lifecycle.
type Status string

const (
	// StatusStarting covers viewer session creation, before the
	// browser is usable.
	StatusStarting Status = "starting"
	// StatusBrowserReady means the session exists but the stream has
	// not been opened yet.
	StatusBrowserReady Status = "browser_ready"
	// StatusWatching means the stream page is open and minutes are
	// being accumulated.
	StatusWatching Status = "watching"
	// StatusCompleted is terminal success: the quota was reached.
	StatusCompleted Status = "completed"
	// StatusFailed is terminal failure, reachable from every
	// non-terminal status.
	StatusFailed Status = "failed"
)

var allStatuses = []Status{
	StatusStarting,
	StatusBrowserReady,
	StatusWatching,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var statusTransitions = map[Status][]Status{
	StatusStarting:     {StatusBrowserReady, StatusFailed},
	StatusBrowserReady: {StatusWatching, StatusFailed},
	StatusWatching:     {StatusCompleted, StatusFailed},
	StatusCompleted:    {},
	StatusFailed:       {},
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus normalizes raw input into a known Status.
func ParseStatus(raw string) (Status, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
	candidate := Status(normalized)
	if _, ok := statusSet[candidate]; !ok {
		return "", fmt.Errorf("unknown task status %q", raw)
	}
	return candidate, nil
}

// ValidTransition reports whether moving from one status to another is
// allowed by the lifecycle.
func ValidTransition(from, to Status) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// FailureReason labels why an attempt failed. The label decides
// whether the failure is reported upstream.
type FailureReason string

const (
	// ReasonSessionInit means the browser session never came up.
	// The control plane is not told about these.
	ReasonSessionInit FailureReason = "session-init-failed"
	// ReasonOpenFailed means the stream page did not reach a playable
	// state. Also kept local.
	ReasonOpenFailed FailureReason = "open-failed"
	// ReasonStreamError means an established stream broke mid-watch.
	// These are reported with a snapshot when one could be captured.
	ReasonStreamError FailureReason = "stream-error"
)

// Reportable reports whether the failure is sent to the control plane.
func (r FailureReason) Reportable() bool {
	return r == ReasonStreamError
}

// Task is one watch assignment handed out by the control plane.
// Cookies carry the viewer credentials for the stream platform.
type Task struct {
	ID             int64             `json:"id"`
	RoomID         string            `json:"room_id"`
	TotalWatchTime int               `json:"total_watch_time"`
	WatchedTime    int               `json:"watched_time"`
	Cookies        map[string]string `json:"cookie"`
}

var (
	// ErrInvalidTask marks assignments that cannot be executed.
	ErrInvalidTask = errors.New("invalid task")
)

// Validate rejects assignments the executor cannot act on.
func (t *Task) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil task", ErrInvalidTask)
	}
	if t.ID <= 0 {
		return fmt.Errorf("%w: non-positive id %d", ErrInvalidTask, t.ID)
	}
	if strings.TrimSpace(t.RoomID) == "" {
		return fmt.Errorf("%w: task %d has empty room id", ErrInvalidTask, t.ID)
	}
	if t.TotalWatchTime <= 0 {
		return fmt.Errorf("%w: task %d has non-positive quota %d", ErrInvalidTask, t.ID, t.TotalWatchTime)
	}
	return nil
}

// Normalize clamps the watched counter into [0, quota]. Control-plane
// records occasionally drift past the quota; execution treats those as
// already complete rather than erroring.
func (t *Task) Normalize() {
	if t == nil {
		return
	}
	if t.WatchedTime < 0 {
		t.WatchedTime = 0
	}
	if t.WatchedTime > t.TotalWatchTime {
		t.WatchedTime = t.TotalWatchTime
	}
}

// RemainingMinutes returns how many whole minutes still need watching.
func (t *Task) RemainingMinutes() int {
	if t == nil {
		return 0
	}
	remaining := t.TotalWatchTime - t.WatchedTime
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Done reports whether the quota is already satisfied.
func (t *Task) Done() bool {
	return t != nil && t.WatchedTime >= t.TotalWatchTime
}

// ProgressPercent computes reported progress after finishing the
// minute at minuteIndex (zero-based), rounded to two decimals. The
// percentage derives from the local counter, not page playback state.
func ProgressPercent(minuteIndex, totalMinutes int) float64 {
	if totalMinutes <= 0 {
		return 0
	}
	raw := float64(minuteIndex+1) / float64(totalMinutes) * 100
	if raw > 100 {
		raw = 100
	}
	return math.Round(raw*100) / 100
}
