package connection

import (
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyClosed = errors.New("already closed")
)

// Close codes used by the channel.
const (
	CloseNormal           = websocket.CloseNormalClosure   // 1000, intentional
	CloseAbnormal         = websocket.CloseAbnormalClosure // 1006, no close frame
	CloseHeartbeatTimeout = 4000                           // private use, forced by the heartbeat
)

// CloseError describes why a transport closed.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("connection closed: code %d", e.Code)
	}
	return fmt.Sprintf("connection closed: code %d: %s", e.Code, e.Reason)
}

// Normal reports whether the close was intentional.
func (e *CloseError) Normal() bool {
	return e.Code == CloseNormal
}

// closeInfo maps any read error to a CloseError.
func closeInfo(err error) *CloseError {
	var ce *CloseError
	if errors.As(err, &ce) {
		return ce
	}
	var wsErr *websocket.CloseError
	if errors.As(err, &wsErr) {
		return &CloseError{Code: wsErr.Code, Reason: wsErr.Text}
	}
	if err == nil {
		return &CloseError{Code: CloseAbnormal}
	}
	return &CloseError{Code: CloseAbnormal, Reason: err.Error()}
}

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // Full connection target, credential included
	HandshakeTimeout time.Duration // Max time for the opening handshake
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
	UserAgent        string        // Sent as User-Agent on the handshake
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1000,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	URL        string // Base WebSocket URL (e.g., ws://localhost:8000/ws)
	ClientType string // admin, student or proctor
	ClientID   string // Unique client id in the connection path

	// Zero durations fall back to DefaultManagerConfig.
	BaseReconnectInterval time.Duration // Delay unit; attempt n waits n*base
	PingInterval          time.Duration // Heartbeat probe interval
	PongTimeout           time.Duration // Max wait for a pong

	// MaxReconnectAttempts is taken as given: zero means never retry, so a
	// literal ManagerConfig without it gives up on the first failure. Start
	// from DefaultManagerConfig to get the usual five retries.
	MaxReconnectAttempts int

	Client ClientConfig // Transport settings (URL is filled per connect)
}

// DefaultManagerConfig returns the reference defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		BaseReconnectInterval: 5 * time.Second,
		MaxReconnectAttempts:  5,
		PingInterval:          30 * time.Second,
		PongTimeout:           10 * time.Second,
		Client:                DefaultClientConfig(),
	}
}

// ReconnectDelay is the wait before reconnect attempt n (1-based): linear,
// not exponential.
func ReconnectDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return base * time.Duration(attempt)
}
