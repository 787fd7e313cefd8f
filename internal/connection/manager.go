package connection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/proctor-live/internal/auth"
	"github.com/rickgao/proctor-live/internal/heartbeat"
	"github.com/rickgao/proctor-live/internal/metrics"
	"github.com/rickgao/proctor-live/internal/model"
	"github.com/rickgao/proctor-live/internal/router"
	"github.com/rickgao/proctor-live/internal/scheduler"
	"github.com/rickgao/proctor-live/internal/subscription"
)

// Manager owns the single logical connection to the server.
type Manager struct {
	cfg     ManagerConfig
	dialer  Dialer
	logger  *slog.Logger
	sched   scheduler.Scheduler
	metrics *metrics.Metrics

	router *router.Router
	subs   *subscription.Tracker
	beat   *heartbeat.Monitor

	mu         sync.Mutex
	state      model.ConnectionState
	attempt    int
	exhausted  bool // terminal event already emitted for this cycle
	credential string
	client     Client
	gen        uint64 // bumps per transport; stale dial and read callbacks compare against it
	dialCancel context.CancelFunc
	retry      scheduler.Timer
	retrySeq   uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s scheduler.Scheduler) Option {
	return func(m *Manager) {
		if s != nil {
			m.sched = s
		}
	}
}

// WithMetrics records connection metrics into mt.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// event is a local event queued under the lock and emitted after it.
type event struct {
	eventType string
	payload   any
}

// NewManager creates a disconnected Manager. A nil dialer uses gorilla/websocket.
func NewManager(cfg ManagerConfig, dialer Dialer, opts ...Option) (*Manager, error) {
	defaults := DefaultManagerConfig()
	if cfg.BaseReconnectInterval <= 0 {
		cfg.BaseReconnectInterval = defaults.BaseReconnectInterval
	}
	if cfg.MaxReconnectAttempts < 0 {
		return nil, fmt.Errorf("max reconnect attempts must be >= 0, got %d", cfg.MaxReconnectAttempts)
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaults.PingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaults.PongTimeout
	}
	if _, err := auth.BuildTarget(cfg.URL, auth.Credentials{ClientType: cfg.ClientType, ClientID: cfg.ClientID}); err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	m := &Manager{
		cfg:    cfg,
		dialer: dialer,
		logger: slog.Default(),
		sched:  scheduler.System(),
		state:  model.StateDisconnected,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "connection")
	if m.dialer == nil {
		m.dialer = NewWebSocketDialer(cfg.Client, m.logger)
	}

	m.router = router.NewRouter(m.logger, m.metrics)
	m.subs = subscription.NewTracker(m, m.logger)
	m.beat = heartbeat.NewMonitor(
		heartbeat.Config{Interval: cfg.PingInterval, Timeout: cfg.PongTimeout},
		m.sched, m, m.onHeartbeatTimeout, m.logger, m.metrics,
	)
	m.router.Intercept(model.TypePong, m.beat.Pong)
	m.metrics.SetState(m.state)

	return m, nil
}

// Connect opens the transport using credential. It returns immediately;
// the outcome is reported through connected, connect_error and the
// reconnect events. Calling Connect while a connection is open or opening
// is a no-op.
func (m *Manager) Connect(credential string) {
	m.mu.Lock()
	if m.state != model.StateDisconnected {
		m.logger.Debug("connect ignored", "state", m.state.String())
		m.mu.Unlock()
		return
	}

	// A manual connect starts a new cycle after giving up.
	if m.exhausted {
		m.attempt = 0
		m.exhausted = false
	}
	m.credential = credential
	m.cancelRetryLocked()
	events := m.connectLocked()
	m.mu.Unlock()

	m.emit(events)
}

// Disconnect closes the connection intentionally. No reconnect follows and
// any pending retry is cancelled.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.cancelRetryLocked()
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}
	if m.state == model.StateDisconnected || m.state == model.StateClosing {
		m.mu.Unlock()
		return
	}

	m.setStateLocked(model.StateClosing)
	m.beat.Stop()
	m.subs.Suspend()
	c := m.client
	m.client = nil
	m.gen++
	m.mu.Unlock()

	if c != nil {
		if err := c.Close(CloseNormal, "client disconnect"); err != nil {
			m.logger.Debug("close failed", "error", err)
		}
	}

	m.mu.Lock()
	m.setStateLocked(model.StateDisconnected)
	m.mu.Unlock()

	m.logger.Info("disconnected")
	if c != nil {
		m.emit([]event{{model.EventDisconnected, model.DisconnectedEvent{Code: CloseNormal, Reason: "client disconnect"}}})
	}
}

// Send encodes and transmits one message. While not connected the message
// is dropped, a warning event is emitted and ErrNotConnected is returned.
func (m *Manager) Send(msgType string, payload any) error {
	msg, err := model.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	return m.Transmit(msg)
}

// Transmit sends a built message on the live transport.
func (m *Manager) Transmit(msg model.Message) error {
	m.mu.Lock()
	c := m.client
	connected := m.state == model.StateConnected && c != nil
	m.mu.Unlock()

	if !connected {
		m.logger.Warn("dropping message, not connected", "type", msg.Type)
		m.dropped(model.WarnNotConnected, msg.Type)
		return ErrNotConnected
	}

	data, err := msg.Encode()
	if err != nil {
		return err
	}
	if err := c.Send(data); err != nil {
		m.logger.Warn("send failed", "type", msg.Type, "error", err)
		m.dropped(model.WarnSendFailed, msg.Type)
		return fmt.Errorf("send %s: %w", msg.Type, err)
	}
	return nil
}

// IsConnected reports whether the state is Connected.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == model.StateConnected
}

// Status returns the current state and reconnect attempt.
func (m *Manager) Status() model.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.Status{State: m.state, Attempt: m.attempt}
}

// On registers a consumer for an inbound message type or a local event.
func (m *Manager) On(eventType string, h router.Handler) router.Unsubscribe {
	return m.router.On(eventType, h)
}

// SubscribeChannel tracks c and activates it now if connected.
func (m *Manager) SubscribeChannel(c subscription.Channel) error {
	return m.subs.Subscribe(c)
}

// UnsubscribeChannel stops tracking c and deactivates it now if connected.
func (m *Manager) UnsubscribeChannel(c subscription.Channel) error {
	return m.subs.Unsubscribe(c)
}

// Stats returns router statistics.
func (m *Manager) Stats() router.RouterStats {
	return m.router.Stats()
}

// Router returns the event router.
func (m *Manager) Router() *router.Router {
	return m.router
}

// Subscriptions returns the subscription tracker.
func (m *Manager) Subscriptions() *subscription.Tracker {
	return m.subs
}

// connectLocked starts one dial. Caller holds m.mu and has checked the state.
func (m *Manager) connectLocked() []event {
	target, err := auth.BuildTarget(m.cfg.URL, auth.Credentials{
		ClientType: m.cfg.ClientType,
		ClientID:   m.cfg.ClientID,
		Token:      m.credential,
	})
	if err != nil {
		events := []event{{model.EventConnectError, model.ConnectErrorEvent{Error: err.Error()}}}
		return m.scheduleReconnectLocked(events)
	}

	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(context.Background())
	m.dialCancel = cancel
	m.setStateLocked(model.StateConnecting)

	m.logger.Info("connecting", "target", auth.Redact(target), "attempt", m.attempt)
	go m.dial(ctx, gen, target)
	return nil
}

func (m *Manager) dial(ctx context.Context, gen uint64, target string) {
	c, err := m.dialer.Dial(ctx, target)

	m.mu.Lock()
	if gen != m.gen || m.state != model.StateConnecting {
		m.mu.Unlock()
		if c != nil {
			c.Close(CloseNormal, "superseded")
		}
		return
	}
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}

	if err != nil {
		m.logger.Warn("connect failed", "error", err, "attempt", m.attempt)
		m.setStateLocked(model.StateDisconnected)
		events := m.scheduleReconnectLocked([]event{
			{model.EventConnectError, model.ConnectErrorEvent{Error: err.Error()}},
		})
		m.mu.Unlock()
		m.emit(events)
		return
	}

	attempt := m.attempt
	m.client = c
	m.attempt = 0
	m.exhausted = false
	m.setStateLocked(model.StateConnected)
	m.beat.Start()
	// Snapshot under m.mu so a concurrent SubscribeChannel is either
	// replayed here or sent directly, never both.
	replay := m.subs.Activate()
	m.mu.Unlock()

	m.logger.Info("connected", "attempt", attempt)
	go m.readLoop(gen, c)

	m.subs.Replay(replay)
	m.emit([]event{{model.EventConnected, model.ConnectedEvent{Attempt: attempt}}})
}

// readLoop routes inbound frames until the transport ends.
func (m *Manager) readLoop(gen uint64, c Client) {
	for {
		select {
		case msg := <-c.Messages():
			m.router.Route(msg.Data)

		case err := <-c.Errors():
			m.drain(c)
			m.handleClose(gen, err)
			return

		case <-c.Done():
			return
		}
	}
}

// drain routes frames that were buffered before the transport failed.
func (m *Manager) drain(c Client) {
	for {
		select {
		case msg := <-c.Messages():
			m.router.Route(msg.Data)
		default:
			return
		}
	}
}

// handleClose runs the unexpected-close path for transport gen.
func (m *Manager) handleClose(gen uint64, err error) {
	info := closeInfo(err)

	m.mu.Lock()
	if gen != m.gen || m.state != model.StateConnected {
		m.mu.Unlock()
		return
	}
	c := m.client
	m.client = nil
	m.beat.Stop()
	m.subs.Suspend()
	m.setStateLocked(model.StateDisconnected)

	events := []event{{model.EventDisconnected, model.DisconnectedEvent{Code: info.Code, Reason: info.Reason}}}
	if !info.Normal() {
		events = m.scheduleReconnectLocked(events)
	}
	m.mu.Unlock()

	m.logger.Warn("connection closed", "code", info.Code, "reason", info.Reason)
	if c != nil {
		c.Close(CloseNormal, "")
	}
	m.emit(events)
}

// onHeartbeatTimeout force-closes a transport that stopped answering pings.
func (m *Manager) onHeartbeatTimeout() {
	m.mu.Lock()
	if m.state != model.StateConnected || m.client == nil {
		m.mu.Unlock()
		return
	}
	gen := m.gen
	c := m.client
	m.mu.Unlock()

	info := &CloseError{Code: CloseHeartbeatTimeout, Reason: "heartbeat timeout"}
	if err := c.Close(info.Code, info.Reason); err != nil {
		m.logger.Debug("close failed", "error", err)
	}
	m.handleClose(gen, info)
}

// scheduleReconnectLocked arms the next retry or gives up. Caller holds m.mu.
func (m *Manager) scheduleReconnectLocked(events []event) []event {
	if m.attempt >= m.cfg.MaxReconnectAttempts {
		if !m.exhausted {
			m.exhausted = true
			m.metrics.ReconnectsExhausted()
			m.logger.Error("giving up on reconnect", "attempts", m.attempt)
			events = append(events, event{model.EventMaxReconnectAttempts, model.MaxReconnectAttemptsEvent{Attempts: m.attempt}})
		}
		return events
	}

	m.attempt++
	delay := ReconnectDelay(m.cfg.BaseReconnectInterval, m.attempt)
	m.retrySeq++
	seq := m.retrySeq
	m.retry = m.sched.After(delay, func() { m.retryConnect(seq) })
	m.metrics.ReconnectScheduled()

	m.logger.Info("reconnect scheduled", "attempt", m.attempt, "delay", delay)
	return append(events, event{model.EventReconnecting, model.ReconnectingEvent{
		Attempt: m.attempt,
		DelayMs: delay.Milliseconds(),
	}})
}

// retryConnect fires for retry seq. A manual connect or disconnect in the
// meantime makes it a no-op.
func (m *Manager) retryConnect(seq uint64) {
	m.mu.Lock()
	if seq != m.retrySeq || m.retry == nil || m.state != model.StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.retry = nil
	events := m.connectLocked()
	m.mu.Unlock()

	m.emit(events)
}

func (m *Manager) cancelRetryLocked() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	m.retrySeq++
}

func (m *Manager) setStateLocked(s model.ConnectionState) {
	if m.state == s {
		return
	}
	m.logger.Debug("state change", "from", m.state.String(), "to", s.String())
	m.state = s
	m.metrics.SetState(s)
}

func (m *Manager) dropped(reason, msgType string) {
	m.metrics.SendDropped(reason)
	m.emit([]event{{model.EventWarning, model.WarningEvent{Reason: reason, Type: msgType}}})
}

func (m *Manager) emit(events []event) {
	for _, e := range events {
		m.router.Emit(e.eventType, e.payload)
	}
}
