package model

// Event types emitted locally by the connection manager.
const (
	EventConnected            = "connected"
	EventDisconnected         = "disconnected"
	EventReconnecting         = "reconnecting"
	EventConnectError         = "connect_error"
	EventMaxReconnectAttempts = "max_reconnect_attempts"
	EventWarning              = "warning"
)

// ConnectedEvent is the payload of EventConnected.
// Attempt is the retry count that led to this connection (0 for the first try).
type ConnectedEvent struct {
	Attempt int `json:"attempt"`
}

// DisconnectedEvent is the payload of EventDisconnected.
type DisconnectedEvent struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

// ReconnectingEvent is the payload of EventReconnecting.
type ReconnectingEvent struct {
	Attempt int   `json:"attempt"`
	DelayMs int64 `json:"delay_ms"`
}

// ConnectErrorEvent is the payload of EventConnectError.
type ConnectErrorEvent struct {
	Error string `json:"error"`
}

// MaxReconnectAttemptsEvent is the payload of EventMaxReconnectAttempts.
type MaxReconnectAttemptsEvent struct {
	Attempts int `json:"attempts"`
}

// WarningEvent is the payload of EventWarning.
type WarningEvent struct {
	Reason string `json:"reason"` // e.g. "not_connected"
	Type   string `json:"type"`   // message type that triggered the warning
}

// Warning reasons.
const (
	WarnNotConnected = "not_connected"
	WarnSendFailed   = "send_failed"
)
