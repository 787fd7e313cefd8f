package config

import "time"

// Config is the root configuration for a proctorwatch instance.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Channel       ChannelConfig       `yaml:"channel"`
	Subscriptions SubscriptionsConfig `yaml:"subscriptions"`
	Archive       ArchiveConfig       `yaml:"archive"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// ServerConfig identifies the push endpoint and this client.
type ServerConfig struct {
	URL              string        `yaml:"url"`         // Base WebSocket URL, e.g. ws://localhost:8000/ws
	ClientType       string        `yaml:"client_type"` // admin, student or proctor
	ClientID         string        `yaml:"client_id"`   // Generated when empty
	Token            string        `yaml:"token"`
	TokenFile        string        `yaml:"token_file"` // Read when token is empty
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	ReadBuffer       int           `yaml:"read_buffer"`
}

// ChannelConfig holds reconnect and heartbeat settings.
type ChannelConfig struct {
	BaseReconnectInterval time.Duration `yaml:"base_reconnect_interval"`
	MaxReconnectAttempts  *int          `yaml:"max_reconnect_attempts"` // nil means default; 0 disables retries
	PingInterval          time.Duration `yaml:"ping_interval"`
	PongTimeout           time.Duration `yaml:"pong_timeout"`
}

// SubscriptionsConfig lists channels joined at start-up.
type SubscriptionsConfig struct {
	Exams []string `yaml:"exams"`
	Rooms []string `yaml:"rooms"`
}

// ArchiveConfig holds the event archive settings.
type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	EventTypes    []string      `yaml:"event_types"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	Database      DBConfig      `yaml:"database"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds Prometheus metrics settings. A negative port disables
// the endpoint.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// Enabled reports whether the metrics endpoint should be served.
func (m MetricsConfig) Enabled() bool {
	return m.Port > 0
}
