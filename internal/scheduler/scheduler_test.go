package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func TestManual_After(t *testing.T) {
	m := NewManual(epoch)

	var fired int
	m.After(5*time.Second, func() { fired++ })

	m.Advance(4 * time.Second)
	if fired != 0 {
		t.Fatalf("fired = %d before due, want 0", fired)
	}

	m.Advance(time.Second)
	if fired != 1 {
		t.Fatalf("fired = %d at due time, want 1", fired)
	}

	m.Advance(time.Hour)
	if fired != 1 {
		t.Errorf("one-shot fired %d times, want 1", fired)
	}
	if got := len(m.Pending()); got != 0 {
		t.Errorf("Pending = %d, want 0", got)
	}
}

func TestManual_Every(t *testing.T) {
	m := NewManual(epoch)

	var ticks []time.Time
	timer := m.Every(30*time.Second, func() { ticks = append(ticks, m.Now()) })

	m.Advance(95 * time.Second)
	if len(ticks) != 3 {
		t.Fatalf("ticks = %d, want 3", len(ticks))
	}
	for i, tick := range ticks {
		want := epoch.Add(time.Duration(i+1) * 30 * time.Second)
		if !tick.Equal(want) {
			t.Errorf("tick %d at %v, want %v", i, tick, want)
		}
	}

	if !timer.Stop() {
		t.Error("Stop on active timer returned false")
	}
	if timer.Stop() {
		t.Error("second Stop returned true")
	}

	m.Advance(time.Minute)
	if len(ticks) != 3 {
		t.Errorf("ticks after Stop = %d, want 3", len(ticks))
	}
}

func TestManual_OrderAndNesting(t *testing.T) {
	m := NewManual(epoch)

	var order []string
	m.After(2*time.Second, func() { order = append(order, "b") })
	m.After(time.Second, func() {
		order = append(order, "a")
		m.After(500*time.Millisecond, func() { order = append(order, "a2") })
	})
	m.After(2*time.Second, func() { order = append(order, "c") })

	m.Advance(3 * time.Second)

	want := []string{"a", "a2", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestManual_StopInsideCallback(t *testing.T) {
	m := NewManual(epoch)

	var other Timer
	var otherFired bool
	m.After(time.Second, func() { other.Stop() })
	other = m.After(2*time.Second, func() { otherFired = true })

	m.Advance(5 * time.Second)
	if otherFired {
		t.Error("timer stopped by an earlier callback still fired")
	}
}

func TestManual_Pending(t *testing.T) {
	m := NewManual(epoch)
	m.After(10*time.Second, func() {})
	m.After(5*time.Second, func() {})
	m.Advance(2 * time.Second)

	got := m.Pending()
	if len(got) != 2 || got[0] != 3*time.Second || got[1] != 8*time.Second {
		t.Errorf("Pending = %v, want [3s 8s]", got)
	}
}

func TestManual_WaitPending(t *testing.T) {
	m := NewManual(epoch)

	go func() {
		time.Sleep(10 * time.Millisecond)
		m.After(time.Second, func() {})
	}()

	if !m.WaitPending(1, time.Second) {
		t.Fatal("WaitPending timed out")
	}
	if m.WaitPending(2, 20*time.Millisecond) {
		t.Error("WaitPending(2) reported success with one timer")
	}
}

func TestSystem_AfterAndEvery(t *testing.T) {
	s := System()

	done := make(chan struct{})
	s.After(10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("After callback did not run")
	}

	var ticks atomic.Int32
	timer := s.Every(5*time.Millisecond, func() { ticks.Add(1) })
	time.Sleep(60 * time.Millisecond)
	timer.Stop()

	seen := ticks.Load()
	if seen < 2 {
		t.Errorf("ticks = %d, want >= 2", seen)
	}

	time.Sleep(30 * time.Millisecond)
	if after := ticks.Load(); after > seen+1 {
		t.Errorf("ticks kept running after Stop: %d -> %d", seen, after)
	}
}
