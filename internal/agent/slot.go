package agent

import (
	"sync/atomic"

	"vigil/internal/task"
)

// taskSlot is the single-task ownership register. Acquisition occupies
// it before spawning an executor and the executor clears it on every
// terminal path, which bounds the agent to one in-flight task.
type taskSlot struct {
	current atomic.Pointer[task.Task]
}

// Occupy installs t when the slot is empty. It reports false when a
// task is already in flight or t is nil.
func (s *taskSlot) Occupy(t *task.Task) bool {
	if t == nil {
		return false
	}
	return s.current.CompareAndSwap(nil, t)
}

// Clear empties the slot.
func (s *taskSlot) Clear() {
	s.current.Store(nil)
}

// Current returns the in-flight task, or nil.
func (s *taskSlot) Current() *task.Task {
	return s.current.Load()
}

// Occupied reports whether a task is in flight.
func (s *taskSlot) Occupied() bool {
	return s.current.Load() != nil
}
