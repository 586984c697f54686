// Package config loads and validates the engine configuration from YAML.
// Decoding is strict: unknown fields are errors, and every field has an
// explicit default.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the complete engine configuration.
type Config struct {
	Server ServerConfig  `yaml:"server"`
	RTMP   RTMPConfig    `yaml:"rtmp"`
	Bus    BusConfig     `yaml:"bus"`
	Log    LogConfig     `yaml:"log"`
	Relays []RelayConfig `yaml:"relays,omitempty"`
}

// ServerConfig defines the listening ports. The HTTP port carries FLV
// egress, the API, and metrics; health gets its own port so probes keep
// answering while the main listener is saturated.
type ServerConfig struct {
	RTMPPort   int `yaml:"rtmp_port"`
	HTTPPort   int `yaml:"http_port"`
	HealthPort int `yaml:"health_port"`
}

// RTMPConfig tunes per-connection protocol defaults.
type RTMPConfig struct {
	ChunkSize     uint32 `yaml:"chunk_size"`      // outbound chunk size announced to peers
	WindowAckSize uint32 `yaml:"window_ack_size"` // ack cadence requested from peers
}

// BusConfig tunes fanout buffering.
type BusConfig struct {
	SubscriberBuffer uint32 `yaml:"subscriber_buffer"` // messages buffered per subscriber
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// RelayConfig defines one relay task.
type RelayConfig struct {
	App       string `yaml:"app"`
	Name      string `yaml:"name"`
	Mode      string `yaml:"mode"` // "pull" or "push"
	RemoteURL string `yaml:"remote_url"`
	Reconnect bool   `yaml:"reconnect,omitempty"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes config bytes, rejecting unknown fields and applying
// defaults to anything unset.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() {
	if c.Server.RTMPPort == 0 {
		c.Server.RTMPPort = 1935
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8081
	}
	if c.Server.HealthPort == 0 {
		c.Server.HealthPort = 8080
	}
	if c.RTMP.ChunkSize == 0 {
		c.RTMP.ChunkSize = 4096
	}
	if c.RTMP.WindowAckSize == 0 {
		c.RTMP.WindowAckSize = 2500000
	}
	if c.Bus.SubscriberBuffer == 0 {
		c.Bus.SubscriberBuffer = 1024
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}
