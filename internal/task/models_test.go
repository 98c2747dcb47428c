package task

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseStatusNormalizesInput(t *testing.T) {
	cases := map[string]Status{
		"starting":      StatusStarting,
		" Browser_Ready": StatusBrowserReady,
		"browser-ready": StatusBrowserReady,
		"WATCHING":      StatusWatching,
		"completed":     StatusCompleted,
		"failed":        StatusFailed,
	}
	for raw, want := range cases {
		got, err := ParseStatus(raw)
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseStatus(%q) = %q, want %q", raw, got, want)
		}
	}
	if _, err := ParseStatus("paused"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestValidTransitionFollowsLifecycle(t *testing.T) {
	allowed := [][2]Status{
		{StatusStarting, StatusBrowserReady},
		{StatusStarting, StatusFailed},
		{StatusBrowserReady, StatusWatching},
		{StatusBrowserReady, StatusFailed},
		{StatusWatching, StatusCompleted},
		{StatusWatching, StatusFailed},
	}
	for _, pair := range allowed {
		if !ValidTransition(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be valid", pair[0], pair[1])
		}
	}

	denied := [][2]Status{
		{StatusStarting, StatusWatching},
		{StatusStarting, StatusCompleted},
		{StatusBrowserReady, StatusCompleted},
		{StatusCompleted, StatusWatching},
		{StatusFailed, StatusStarting},
		{StatusCompleted, StatusFailed},
	}
	for _, pair := range denied {
		if ValidTransition(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be rejected", pair[0], pair[1])
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, status := range AllStatuses() {
		terminal := status == StatusCompleted || status == StatusFailed
		if status.IsTerminal() != terminal {
			t.Fatalf("IsTerminal(%s) = %v", status, status.IsTerminal())
		}
	}
}

func TestFailureReasonReportable(t *testing.T) {
	if ReasonSessionInit.Reportable() {
		t.Fatal("session-init failures must stay local")
	}
	if ReasonOpenFailed.Reportable() {
		t.Fatal("open failures must stay local")
	}
	if !ReasonStreamError.Reportable() {
		t.Fatal("stream errors must be reported")
	}
}

func TestTaskDecodesWireShape(t *testing.T) {
	payload := []byte(`{
		"id": 17,
		"room_id": "21452505",
		"total_watch_time": 30,
		"watched_time": 5,
		"cookie": {"SESSDATA": "abc123", "bili_jct": "tok"}
	}`)

	var parsed Task
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.ID != 17 || parsed.RoomID != "21452505" {
		t.Fatalf("unexpected identity fields: %+v", parsed)
	}
	if parsed.TotalWatchTime != 30 || parsed.WatchedTime != 5 {
		t.Fatalf("unexpected counters: %+v", parsed)
	}
	if parsed.Cookies["SESSDATA"] != "abc123" {
		t.Fatalf("unexpected cookies: %+v", parsed.Cookies)
	}
}

func TestTaskValidate(t *testing.T) {
	valid := Task{ID: 1, RoomID: "1029", TotalWatchTime: 10}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid task rejected: %v", err)
	}

	bad := []Task{
		{ID: 0, RoomID: "1029", TotalWatchTime: 10},
		{ID: -3, RoomID: "1029", TotalWatchTime: 10},
		{ID: 1, RoomID: "   ", TotalWatchTime: 10},
		{ID: 1, RoomID: "1029", TotalWatchTime: 0},
	}
	for i := range bad {
		err := bad[i].Validate()
		if err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
		if !errors.Is(err, ErrInvalidTask) {
			t.Fatalf("case %d: error %v not wrapped as ErrInvalidTask", i, err)
		}
	}
}

func TestNormalizeClampsWatchedCounter(t *testing.T) {
	over := Task{ID: 1, RoomID: "1029", TotalWatchTime: 10, WatchedTime: 25}
	over.Normalize()
	if over.WatchedTime != 10 {
		t.Fatalf("watched not clamped to quota: %d", over.WatchedTime)
	}
	if !over.Done() {
		t.Fatal("clamped task should report done")
	}

	negative := Task{ID: 1, RoomID: "1029", TotalWatchTime: 10, WatchedTime: -4}
	negative.Normalize()
	if negative.WatchedTime != 0 {
		t.Fatalf("watched not clamped to zero: %d", negative.WatchedTime)
	}
	if negative.RemainingMinutes() != 10 {
		t.Fatalf("remaining = %d, want 10", negative.RemainingMinutes())
	}
}

func TestProgressPercentRounding(t *testing.T) {
	cases := []struct {
		minute int
		total  int
		want   float64
	}{
		{0, 3, 33.33},
		{1, 3, 66.67},
		{2, 3, 100},
		{0, 1, 100},
		{5, 7, 85.71},
		{0, 0, 0},
	}
	for _, tc := range cases {
		got := ProgressPercent(tc.minute, tc.total)
		if got != tc.want {
			t.Fatalf("ProgressPercent(%d, %d) = %v, want %v", tc.minute, tc.total, got, tc.want)
		}
	}
}
