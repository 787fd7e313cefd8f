package router

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/proctor-live/internal/metrics"
	"github.com/rickgao/proctor-live/internal/model"
)

// Router routes events to registered consumers.
type Router struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu           sync.RWMutex
	registries   map[string]*registry
	interceptors map[string]func(json.RawMessage)

	statsMu sync.Mutex
	stats   RouterStats
}

// NewRouter creates an Event Router. m may be nil.
func NewRouter(logger *slog.Logger, m *metrics.Metrics) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{
		logger:       logger.With("component", "router"),
		metrics:      m,
		registries:   make(map[string]*registry),
		interceptors: make(map[string]func(json.RawMessage)),
	}
}

// On registers handler for eventType and returns a handle that removes
// exactly this registration.
func (r *Router) On(eventType string, handler Handler) Unsubscribe {
	s := &slot{handler: handler}

	r.mu.Lock()
	reg, ok := r.registries[eventType]
	if !ok {
		reg = &registry{}
		r.registries[eventType] = reg
	}
	s.idx = len(reg.slots)
	reg.slots = append(reg.slots, s)
	reg.live++
	r.mu.Unlock()

	return func() { r.remove(eventType, s) }
}

func (r *Router) remove(eventType string, s *slot) {
	if s.removed.Swap(true) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.registries[eventType]
	if !ok || s.idx >= len(reg.slots) || reg.slots[s.idx] != s {
		return
	}
	reg.slots[s.idx] = nil
	reg.live--

	switch {
	case reg.live == 0:
		delete(r.registries, eventType)
	case reg.shouldCompact():
		reg.compact()
	}
}

// Listeners returns the number of live registrations for eventType.
func (r *Router) Listeners(eventType string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if reg, ok := r.registries[eventType]; ok {
		return reg.live
	}
	return 0
}

// Intercept installs fn as the sole receiver of frames of eventType.
// Intercepted frames never reach consumers registered with On.
func (r *Router) Intercept(eventType string, fn func(json.RawMessage)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interceptors[eventType] = fn
}

// Route decodes one inbound frame and delivers it. Malformed frames are
// logged, counted and dropped.
func (r *Router) Route(data []byte) {
	r.count(func(s *RouterStats) { s.FramesReceived++ })
	r.metrics.FrameReceived()

	msg, err := model.Decode(data)
	if err != nil {
		r.logger.Warn("dropping malformed frame", "error", err, "size", len(data))
		r.count(func(s *RouterStats) { s.ParseErrors++ })
		r.metrics.FrameMalformed()
		return
	}

	r.mu.RLock()
	intercept := r.interceptors[msg.Type]
	r.mu.RUnlock()

	if intercept != nil {
		r.count(func(s *RouterStats) { s.Intercepted++ })
		intercept(msg.Payload)
		return
	}

	if n := r.Dispatch(msg.Type, msg.Payload); n == 0 {
		r.logger.Debug("no consumers for message type", "type", msg.Type)
		r.count(func(s *RouterStats) { s.UnknownMessages++ })
	}
}

// Dispatch invokes every consumer registered for eventType, synchronously
// and in registration order. It returns the number of consumers invoked.
func (r *Router) Dispatch(eventType string, payload json.RawMessage) int {
	r.mu.RLock()
	reg, ok := r.registries[eventType]
	var snapshot []*slot
	if ok {
		snapshot = make([]*slot, 0, reg.live)
		for _, sl := range reg.slots {
			if sl != nil {
				snapshot = append(snapshot, sl)
			}
		}
	}
	r.mu.RUnlock()

	invoked := 0
	for _, sl := range snapshot {
		// A consumer removed by an earlier consumer in this pass is skipped.
		if sl.removed.Load() {
			continue
		}
		invoked++
		if err := r.invoke(sl.handler, payload); err != nil {
			r.logger.Error("consumer failed",
				"event_type", eventType,
				"error", err,
			)
			r.count(func(s *RouterStats) { s.HandlerErrors++ })
			r.metrics.ConsumerFailed(eventType)
		}
	}

	if invoked > 0 {
		r.count(func(s *RouterStats) { s.Dispatched++ })
		r.metrics.Dispatched(eventType)
	}
	return invoked
}

// Emit marshals payload and dispatches it as a local event.
func (r *Router) Emit(eventType string, payload any) {
	msg, err := model.NewMessage(eventType, payload)
	if err != nil {
		r.logger.Error("failed to build local event", "event_type", eventType, "error", err)
		return
	}
	r.Dispatch(msg.Type, msg.Payload)
}

// invoke runs a single handler, converting a panic into an error.
func (r *Router) invoke(h Handler, payload json.RawMessage) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("consumer panic: %v", rec)
		}
	}()
	return h(payload)
}

// Stats returns current statistics.
func (r *Router) Stats() RouterStats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return r.stats
}

func (r *Router) count(fn func(*RouterStats)) {
	r.statsMu.Lock()
	fn(&r.stats)
	r.statsMu.Unlock()
}
