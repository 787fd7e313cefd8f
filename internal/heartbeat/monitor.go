package heartbeat

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/proctor-live/internal/metrics"
	"github.com/rickgao/proctor-live/internal/model"
	"github.com/rickgao/proctor-live/internal/scheduler"
)

// Default probe timings.
const (
	DefaultInterval = 30 * time.Second
	DefaultTimeout  = 10 * time.Second
)

// Config configures the probe timings.
type Config struct {
	Interval time.Duration // between pings
	Timeout  time.Duration // max wait for a pong
}

// DefaultConfig returns the reference timings.
func DefaultConfig() Config {
	return Config{
		Interval: DefaultInterval,
		Timeout:  DefaultTimeout,
	}
}

// Transmitter sends a control message on the live transport.
type Transmitter interface {
	Transmit(msg model.Message) error
}

// Monitor detects connections that are open but unresponsive.
type Monitor struct {
	cfg       Config
	sched     scheduler.Scheduler
	tx        Transmitter
	onTimeout func()
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu       sync.Mutex
	running  bool
	epoch    uint64 // bumps on every Start/Stop so stale callbacks no-op
	ticker   scheduler.Timer
	deadline scheduler.Timer
	armed    uint64 // id of the armed timeout, 0 when none
	armSeq   uint64
	sentAt   time.Time
}

// NewMonitor creates a stopped Monitor. onTimeout runs without any monitor
// lock held.
func NewMonitor(cfg Config, sched scheduler.Scheduler, tx Transmitter, onTimeout func(), logger *slog.Logger, m *metrics.Metrics) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if sched == nil {
		sched = scheduler.System()
	}

	return &Monitor{
		cfg:       cfg,
		sched:     sched,
		tx:        tx,
		onTimeout: onTimeout,
		logger:    logger.With("component", "heartbeat"),
		metrics:   m,
	}
}

// Start begins probing. Starting a running monitor is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true
	m.epoch++
	epoch := m.epoch
	m.ticker = m.sched.Every(m.cfg.Interval, func() { m.probe(epoch) })

	m.logger.Debug("heartbeat started",
		"interval", m.cfg.Interval,
		"timeout", m.cfg.Timeout,
	)
}

// Stop cancels the probe and any armed timeout. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false
	m.epoch++
	if m.ticker != nil {
		m.ticker.Stop()
		m.ticker = nil
	}
	m.disarmLocked()

	m.logger.Debug("heartbeat stopped")
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Pong records a heartbeat response and cancels the armed timeout.
// The payload is not inspected; any pong answers the outstanding ping.
func (m *Monitor) Pong(_ json.RawMessage) {
	m.mu.Lock()
	if !m.running || m.armed == 0 {
		m.mu.Unlock()
		return
	}
	rtt := m.sched.Now().Sub(m.sentAt)
	m.disarmLocked()
	m.mu.Unlock()

	m.metrics.HeartbeatRTT(rtt)
	m.logger.Debug("pong received", "rtt", rtt)
}

// probe sends one ping. The timeout is armed before the send so a fast pong
// always finds it. The earliest unanswered ping owns the deadline.
func (m *Monitor) probe(epoch uint64) {
	m.mu.Lock()
	if !m.running || epoch != m.epoch {
		m.mu.Unlock()
		return
	}

	// An unanswered ping keeps its deadline. Re-arming here would let a
	// timeout longer than the interval slide forever.
	now := m.sched.Now()
	if m.armed == 0 {
		m.sentAt = now
		m.armSeq++
		id := m.armSeq
		m.armed = id
		m.deadline = m.sched.After(m.cfg.Timeout, func() { m.expire(epoch, id) })
	}
	m.mu.Unlock()

	msg, err := model.NewMessage(model.TypePing, model.PingPayload{Timestamp: now.UnixMilli()})
	if err == nil {
		err = m.tx.Transmit(msg)
	}
	if err != nil {
		// The armed timeout still catches a dead connection.
		m.logger.Warn("failed to send ping", "error", err)
	}
}

func (m *Monitor) expire(epoch, id uint64) {
	m.mu.Lock()
	if !m.running || epoch != m.epoch || m.armed != id {
		m.mu.Unlock()
		return
	}
	m.deadline = nil
	m.armed = 0
	m.mu.Unlock()

	m.metrics.HeartbeatTimeout()
	m.logger.Warn("pong not received, forcing reconnect", "timeout", m.cfg.Timeout)

	if m.onTimeout != nil {
		m.onTimeout()
	}
}

func (m *Monitor) disarmLocked() {
	if m.deadline != nil {
		m.deadline.Stop()
		m.deadline = nil
	}
	m.armed = 0
}
