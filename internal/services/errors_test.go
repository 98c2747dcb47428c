package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"vigil/internal/task"
)

func TestWrapPreservesMarkerAndCause(t *testing.T) {
	cause := errors.New("websocket closed")
	err := Wrap(ErrStreamLost, "viewer", "assert-alive", "player gone", cause)

	if !errors.Is(err, ErrStreamLost) {
		t.Fatalf("marker lost: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost: %v", err)
	}
	want := "stream playback lost: viewer: assert-alive: player gone: websocket closed"
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}

func TestWrapSkipsEmptyDetail(t *testing.T) {
	err := Wrap(ErrControlPlane, "", "  ", "", nil)
	if err != ErrControlPlane {
		t.Fatalf("expected bare marker, got %v", err)
	}

	cause := errors.New("connection refused")
	err = Wrap(ErrControlPlane, "", "", "", cause)
	if !errors.Is(err, ErrControlPlane) || !errors.Is(err, cause) {
		t.Fatalf("chain broken: %v", err)
	}
}

func TestClassifyFailure(t *testing.T) {
	cases := []struct {
		err  error
		want task.FailureReason
	}{
		{Wrap(ErrSessionInit, "viewer", "create", "", errors.New("launch failed")), task.ReasonSessionInit},
		{Wrap(ErrStreamOpen, "viewer", "open-stream", "", errors.New("timeout")), task.ReasonOpenFailed},
		{Wrap(ErrStreamLost, "viewer", "assert-alive", "", nil), task.ReasonStreamError},
		{fmt.Errorf("page crashed"), task.ReasonStreamError},
	}
	for i, tc := range cases {
		if got := ClassifyFailure(tc.err); got != tc.want {
			t.Fatalf("case %d: ClassifyFailure = %q, want %q", i, got, tc.want)
		}
	}
}

func TestContextRoundTrips(t *testing.T) {
	ctx := WithTaskID(WithRoomID(WithStage(context.Background(), "watching"), "21452505"), 9)

	if id, ok := TaskIDFromContext(ctx); !ok || id != 9 {
		t.Fatalf("task id = %d, %v", id, ok)
	}
	if room, ok := RoomIDFromContext(ctx); !ok || room != "21452505" {
		t.Fatalf("room id = %q, %v", room, ok)
	}
	if stage, ok := StageFromContext(ctx); !ok || stage != "watching" {
		t.Fatalf("stage = %q, %v", stage, ok)
	}

	if _, ok := TaskIDFromContext(context.Background()); ok {
		t.Fatal("empty context should not produce a task id")
	}
}
