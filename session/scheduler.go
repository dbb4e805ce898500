package session

import (
	"sync/atomic"
	"time"
)

// Scheduler runs functions on the loop of a session after a delay.
type Scheduler struct {
	exec func(fn func()) bool
}

// Task is a function scheduled with Scheduler.After.
type Task struct {
	timer     *time.Timer
	cancelled atomic.Bool
}

// After runs fn on the session loop once d has passed. The timer fires on its own goroutine and only hands
// fn to the loop, so fn may touch session state freely. Nothing runs if the session closed in the meantime.
func (s *Scheduler) After(d time.Duration, fn func()) *Task {
	t := &Task{}
	t.timer = time.AfterFunc(d, func() {
		s.exec(func() {
			if !t.cancelled.Load() {
				fn()
			}
		})
	})
	return t
}

// Cancel stops the task from running. A task that was already handed to the loop is still skipped.
// Cancelling more than once, or after the task ran, does nothing.
func (t *Task) Cancel() {
	if t.cancelled.CompareAndSwap(false, true) {
		t.timer.Stop()
	}
}

// Cancelled reports whether Cancel was called.
func (t *Task) Cancelled() bool {
	return t.cancelled.Load()
}
