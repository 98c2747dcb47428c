package agent

import (
	"sync"
	"sync/atomic"
	"testing"

	"vigil/internal/task"
)

func TestTaskSlotOccupiesOnce(t *testing.T) {
	var slot taskSlot

	first := &task.Task{ID: 1, RoomID: "100"}
	second := &task.Task{ID: 2, RoomID: "200"}

	if slot.Occupied() {
		t.Fatal("expected empty slot")
	}
	if !slot.Occupy(first) {
		t.Fatal("expected occupy of empty slot to succeed")
	}
	if slot.Occupy(second) {
		t.Fatal("expected occupy of held slot to fail")
	}
	current := slot.Current()
	if current == nil || current.ID != first.ID {
		t.Fatalf("expected task %d in slot, got %+v", first.ID, current)
	}

	slot.Clear()
	if slot.Occupied() {
		t.Fatal("expected cleared slot")
	}
	if !slot.Occupy(second) {
		t.Fatal("expected occupy after clear to succeed")
	}
}

func TestTaskSlotRejectsNilAssignment(t *testing.T) {
	var slot taskSlot

	if slot.Occupy(nil) {
		t.Fatal("expected nil assignment to be rejected")
	}
	if slot.Occupied() {
		t.Fatal("expected slot to stay empty")
	}
}

func TestTaskSlotSingleWinnerUnderContention(t *testing.T) {
	var slot taskSlot

	const contenders = 32
	var wins atomic.Int32
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		assignment := &task.Task{ID: int64(i + 1), RoomID: "7"}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if slot.Occupy(assignment) {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Fatalf("expected exactly one winner, got %d", got)
	}
	if !slot.Occupied() {
		t.Fatal("expected the slot to stay held after the race")
	}
}
