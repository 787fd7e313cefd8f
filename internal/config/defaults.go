package config

import (
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/proctor-live/internal/model"
)

// Default values for optional configuration fields.
const (
	DefaultServerURL             = "ws://localhost:8000/ws"
	DefaultClientType            = "proctor"
	DefaultHandshakeTimeout      = 10 * time.Second
	DefaultWriteTimeout          = 5 * time.Second
	DefaultReadBuffer            = 1000
	DefaultBaseReconnectInterval = 5 * time.Second
	DefaultMaxReconnectAttempts  = 5
	DefaultPingInterval          = 30 * time.Second
	DefaultPongTimeout           = 10 * time.Second
	DefaultDBPort                = 5432
	DefaultDBSSLMode             = "prefer"
	DefaultMaxConns              = 4
	DefaultMinConns              = 1
	DefaultBatchSize             = 100
	DefaultFlushInterval         = 1 * time.Second
	DefaultBufferSize            = 1000
	DefaultMetricsPort           = 9090
	DefaultMetricsPath           = "/metrics"
)

// DefaultArchiveEventTypes are archived when archive.event_types is empty.
var DefaultArchiveEventTypes = []string{
	"violation_alert",
	model.EventDisconnected,
	model.EventMaxReconnectAttempts,
}

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.URL == "" {
		c.Server.URL = DefaultServerURL
	}
	if c.Server.ClientType == "" {
		c.Server.ClientType = DefaultClientType
	}
	if c.Server.ClientID == "" {
		c.Server.ClientID = c.Server.ClientType + "-" + uuid.NewString()
	}
	if c.Server.HandshakeTimeout == 0 {
		c.Server.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.ReadBuffer == 0 {
		c.Server.ReadBuffer = DefaultReadBuffer
	}

	// Channel defaults
	if c.Channel.BaseReconnectInterval == 0 {
		c.Channel.BaseReconnectInterval = DefaultBaseReconnectInterval
	}
	if c.Channel.MaxReconnectAttempts == nil {
		n := DefaultMaxReconnectAttempts
		c.Channel.MaxReconnectAttempts = &n
	}
	if c.Channel.PingInterval == 0 {
		c.Channel.PingInterval = DefaultPingInterval
	}
	if c.Channel.PongTimeout == 0 {
		c.Channel.PongTimeout = DefaultPongTimeout
	}

	// Archive defaults
	if len(c.Archive.EventTypes) == 0 {
		c.Archive.EventTypes = append([]string(nil), DefaultArchiveEventTypes...)
	}
	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultFlushInterval
	}
	if c.Archive.BufferSize == 0 {
		c.Archive.BufferSize = DefaultBufferSize
	}
	applyDBDefaults(&c.Archive.Database)

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
