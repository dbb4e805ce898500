package session

import (
	"testing"
	"time"
)

// loop returns a Scheduler whose tasks are handed to the channel instead of a session loop.
func loop() (*Scheduler, chan func()) {
	tasks := make(chan func(), 8)
	return &Scheduler{exec: func(fn func()) bool {
		tasks <- fn
		return true
	}}, tasks
}

func TestSchedulerRunsTask(t *testing.T) {
	s, tasks := loop()
	ran := false
	s.After(time.Millisecond, func() { ran = true })

	select {
	case fn := <-tasks:
		fn()
	case <-time.After(time.Second):
		t.Fatal("task was never handed to the loop")
	}
	if !ran {
		t.Fatal("task did not run")
	}
}

func TestSchedulerCancelBeforeFire(t *testing.T) {
	s, tasks := loop()
	task := s.After(50*time.Millisecond, func() { t.Error("cancelled task ran") })
	task.Cancel()
	task.Cancel()
	if !task.Cancelled() {
		t.Fatal("task not marked cancelled")
	}

	select {
	case fn := <-tasks:
		fn()
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSchedulerCancelAfterHandOff(t *testing.T) {
	s, tasks := loop()
	task := s.After(time.Millisecond, func() { t.Error("task cancelled after hand-off ran") })

	var fn func()
	select {
	case fn = <-tasks:
	case <-time.After(time.Second):
		t.Fatal("task was never handed to the loop")
	}
	task.Cancel()
	fn()
}

func TestSchedulerOnClosedSession(t *testing.T) {
	f := newFixture(t)
	_ = f.s.Close()

	ran := make(chan struct{}, 1)
	f.s.Scheduler().After(time.Millisecond, func() { ran <- struct{}{} })
	select {
	case <-ran:
		t.Fatal("task ran on a closed session")
	case <-time.After(50 * time.Millisecond):
	}
}
