package config

import (
	"fmt"
)

const maxChunkSize = 0xFFFFFF

// Validate checks that all configuration values are within acceptable ranges.
// Returns an error describing the first validation failure found.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.RTMP.Validate(); err != nil {
		return fmt.Errorf("rtmp config: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	if c.Bus.SubscriberBuffer == 0 {
		return fmt.Errorf("bus config: subscriber_buffer must be positive")
	}
	for i, relay := range c.Relays {
		if err := relay.Validate(); err != nil {
			return fmt.Errorf("relay %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks server configuration values.
func (s *ServerConfig) Validate() error {
	if s.HealthPort <= 0 || s.HealthPort > 65535 {
		return fmt.Errorf("health_port must be between 1 and 65535, got %d", s.HealthPort)
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 1 and 65535, got %d", s.HTTPPort)
	}
	if s.RTMPPort <= 0 || s.RTMPPort > 65535 {
		return fmt.Errorf("rtmp_port must be between 1 and 65535, got %d", s.RTMPPort)
	}
	if s.HealthPort == s.HTTPPort {
		return fmt.Errorf("health_port and http_port must be different, both are %d", s.HealthPort)
	}
	if s.HealthPort == s.RTMPPort {
		return fmt.Errorf("health_port and rtmp_port must be different, both are %d", s.HealthPort)
	}
	if s.HTTPPort == s.RTMPPort {
		return fmt.Errorf("http_port and rtmp_port must be different, both are %d", s.HTTPPort)
	}
	return nil
}

// Validate checks protocol tuning values.
func (r *RTMPConfig) Validate() error {
	if r.ChunkSize == 0 || r.ChunkSize > maxChunkSize {
		return fmt.Errorf("chunk_size must be between 1 and %d, got %d", maxChunkSize, r.ChunkSize)
	}
	if r.WindowAckSize == 0 {
		return fmt.Errorf("window_ack_size must be positive")
	}
	return nil
}

// Validate checks log settings against the values the logger accepts.
func (l *LogConfig) Validate() error {
	switch l.Level {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("level must be one of trace, debug, info, warn, error, got %q", l.Level)
	}
	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("format must be text or json, got %q", l.Format)
	}
	return nil
}

// Validate checks a single relay entry.
func (r *RelayConfig) Validate() error {
	if r.App == "" {
		return fmt.Errorf("app must not be empty")
	}
	if r.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if r.Mode != "pull" && r.Mode != "push" {
		return fmt.Errorf("mode must be pull or push, got %q", r.Mode)
	}
	if r.RemoteURL == "" {
		return fmt.Errorf("remote_url must not be empty")
	}
	return nil
}
