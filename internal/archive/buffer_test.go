package archive

import (
	"sync"
	"testing"
)

func TestBuffer_FIFO(t *testing.T) {
	b := NewBuffer[int](4)
	for i := 1; i <= 3; i++ {
		if !b.TryPush(i) {
			t.Fatalf("TryPush(%d) rejected", i)
		}
	}

	got := b.Drain(2)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Drain(2) = %v, want [1 2]", got)
	}

	// Wrap around the ring.
	b.TryPush(4)
	b.TryPush(5)
	b.TryPush(6)

	got = b.Drain(0)
	want := []int{3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("Drain(0) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d = %d, want %d", i, got[i], want[i])
		}
	}
	if b.Drain(0) != nil {
		t.Error("Drain on empty buffer should return nil")
	}
}

func TestBuffer_RejectsWhenFull(t *testing.T) {
	b := NewBuffer[string](2)
	b.TryPush("a")
	b.TryPush("b")

	if b.TryPush("c") {
		t.Error("TryPush on full buffer should fail")
	}

	stats := b.Stats()
	if stats.Count != 2 || stats.Capacity != 2 || stats.TotalReceived != 2 || stats.TotalDropped != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestBuffer_Ready(t *testing.T) {
	b := NewBuffer[int](8)

	select {
	case <-b.Ready():
		t.Fatal("Ready fired before any push")
	default:
	}

	b.TryPush(1)
	b.TryPush(2)

	select {
	case <-b.Ready():
	default:
		t.Fatal("Ready did not fire after push")
	}
}

func TestBuffer_MinimumCapacity(t *testing.T) {
	b := NewBuffer[int](0)
	if b.Cap() != 1 {
		t.Errorf("Cap() = %d, want 1", b.Cap())
	}
}

func TestBuffer_Concurrent(t *testing.T) {
	b := NewBuffer[int](1000)

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.TryPush(i)
			}
		}()
	}
	wg.Wait()

	if n := len(b.Drain(0)); n != 400 {
		t.Errorf("drained %d, want 400", n)
	}
}
