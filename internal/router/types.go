package router

import (
	"encoding/json"
	"sync/atomic"
)

// Handler consumes an event payload. Payloads are shared between consumers
// and must be treated as read-only. A returned error is logged and does not
// stop delivery to other consumers.
type Handler func(payload json.RawMessage) error

// Unsubscribe removes one registration. Calling it more than once is a no-op.
type Unsubscribe func()

// RouterStats contains runtime statistics.
type RouterStats struct {
	FramesReceived  int64
	ParseErrors     int64
	Intercepted     int64
	Dispatched      int64
	HandlerErrors   int64
	UnknownMessages int64 // decoded frames with no registered consumer
}

// slot is one registration. idx is its position in the registry and is
// rewritten when the registry compacts; both are guarded by Router.mu.
type slot struct {
	handler Handler
	removed atomic.Bool
	idx     int
}

// registry is the listener sequence for a single event type. Removal
// leaves a nil hole; holes are squeezed out once they dominate.
type registry struct {
	slots []*slot
	live  int
}

// minCompact is the slot count below which holes are left alone.
const minCompact = 16

func (reg *registry) shouldCompact() bool {
	return len(reg.slots) >= minCompact && reg.live*2 < len(reg.slots)
}

// compact rebuilds slots without holes, keeping registration order. It
// allocates a fresh slice; dispatch snapshots are copies and are unaffected.
func (reg *registry) compact() {
	slots := make([]*slot, 0, reg.live)
	for _, s := range reg.slots {
		if s != nil {
			s.idx = len(slots)
			slots = append(slots, s)
		}
	}
	reg.slots = slots
}
