package config

import (
	"errors"
	"fmt"

	"github.com/rickgao/proctor-live/internal/auth"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return errors.New("server.url is required")
	}
	if !auth.ValidClientType(c.Server.ClientType) {
		return fmt.Errorf("server.client_type must be admin, student or proctor, got %q", c.Server.ClientType)
	}
	if c.Server.ClientID == "" {
		return errors.New("server.client_id is required")
	}
	if c.Server.ReadBuffer < 1 {
		return errors.New("server.read_buffer must be >= 1")
	}

	if c.Channel.BaseReconnectInterval <= 0 {
		return errors.New("channel.base_reconnect_interval must be > 0")
	}
	if c.Channel.MaxReconnectAttempts == nil || *c.Channel.MaxReconnectAttempts < 0 {
		return errors.New("channel.max_reconnect_attempts must be >= 0")
	}
	if c.Channel.PingInterval <= 0 {
		return errors.New("channel.ping_interval must be > 0")
	}
	if c.Channel.PongTimeout <= 0 {
		return errors.New("channel.pong_timeout must be > 0")
	}
	if c.Channel.PongTimeout >= c.Channel.PingInterval {
		return fmt.Errorf("channel.pong_timeout (%s) must be shorter than ping_interval (%s)",
			c.Channel.PongTimeout, c.Channel.PingInterval)
	}

	if c.Archive.Enabled {
		if err := c.Archive.Database.validate("archive.database"); err != nil {
			return err
		}
		if c.Archive.BatchSize < 1 {
			return errors.New("archive.batch_size must be >= 1")
		}
		if c.Archive.BufferSize < c.Archive.BatchSize {
			return fmt.Errorf("archive.buffer_size (%d) cannot be smaller than batch_size (%d)",
				c.Archive.BufferSize, c.Archive.BatchSize)
		}
	}

	if c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
