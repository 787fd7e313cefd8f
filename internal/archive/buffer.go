package archive

import "sync"

// Buffer is a bounded, thread-safe FIFO ring. Pushes never block: when the
// buffer is full the item is rejected.
type Buffer[T any] struct {
	mu    sync.Mutex
	buf   []T
	head  int // read position
	tail  int // write position
	count int
	ready chan struct{}

	// Stats
	totalReceived int64
	totalDropped  int64
}

// NewBuffer creates a buffer holding at most capacity items.
func NewBuffer[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{
		buf:   make([]T, capacity),
		ready: make(chan struct{}, 1),
	}
}

// TryPush appends item. It returns false if the buffer is full.
func (b *Buffer[T]) TryPush(item T) bool {
	b.mu.Lock()
	if b.count == len(b.buf) {
		b.totalDropped++
		b.mu.Unlock()
		return false
	}

	b.buf[b.tail] = item
	b.tail = (b.tail + 1) % len(b.buf)
	b.count++
	b.totalReceived++
	b.mu.Unlock()

	// Wake the consumer without blocking.
	select {
	case b.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready receives a value after one or more pushes.
func (b *Buffer[T]) Ready() <-chan struct{} {
	return b.ready
}

// Drain removes up to max items, oldest first. max <= 0 drains everything.
func (b *Buffer[T]) Drain(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}

	n := b.count
	if max > 0 && max < n {
		n = max
	}

	result := make([]T, n)
	var zero T
	for i := 0; i < n; i++ {
		result[i] = b.buf[b.head]
		b.buf[b.head] = zero // Clear reference for GC
		b.head = (b.head + 1) % len(b.buf)
		b.count--
	}

	return result
}

// Len returns the current number of items in the buffer.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the buffer capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.buf)
}

// Stats returns buffer statistics.
func (b *Buffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:         b.count,
		Capacity:      len(b.buf),
		TotalReceived: b.totalReceived,
		TotalDropped:  b.totalDropped,
	}
}

// BufferStats contains buffer statistics.
type BufferStats struct {
	Count         int
	Capacity      int
	TotalReceived int64
	TotalDropped  int64
}
