package scheduler

import (
	"sync"
	"time"
)

// Timer is a cancellation token for a scheduled callback.
type Timer interface {
	// Stop prevents future runs. Reports whether the timer was still active.
	Stop() bool
}

// Scheduler schedules one-shot and repeating callbacks.
type Scheduler interface {
	// After runs fn once after d.
	After(d time.Duration, fn func()) Timer

	// Every runs fn every d until stopped. The first run is after d.
	Every(d time.Duration, fn func()) Timer

	// Now returns the scheduler's current time.
	Now() time.Time
}

// System returns a Scheduler backed by the runtime timers.
func System() Scheduler {
	return systemScheduler{}
}

type systemScheduler struct{}

func (systemScheduler) After(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

func (systemScheduler) Every(d time.Duration, fn func()) Timer {
	t := &repeatingTimer{interval: d, fn: fn}
	t.mu.Lock()
	t.timer = time.AfterFunc(d, t.fire)
	t.mu.Unlock()
	return t
}

func (systemScheduler) Now() time.Time {
	return time.Now()
}

// repeatingTimer re-arms a runtime timer after every run.
type repeatingTimer struct {
	interval time.Duration
	fn       func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func (t *repeatingTimer) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.fn()

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.stopped {
		t.timer.Reset(t.interval)
	}
}

func (t *repeatingTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	t.timer.Stop()
	return true
}
