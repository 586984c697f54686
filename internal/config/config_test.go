package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFullConfig(t *testing.T) {
	data := []byte(`
server:
  rtmp_port: 1936
  http_port: 9081
  health_port: 9080
rtmp:
  chunk_size: 8192
  window_ack_size: 5000000
bus:
  subscriber_buffer: 512
log:
  level: debug
  format: json
relays:
  - app: live
    name: main
    mode: push
    remote_url: rtmp://origin.example.com/live/main
    reconnect: true
`)

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Server.RTMPPort != 1936 {
		t.Errorf("expected rtmp_port 1936, got %d", cfg.Server.RTMPPort)
	}
	if cfg.RTMP.ChunkSize != 8192 {
		t.Errorf("expected chunk_size 8192, got %d", cfg.RTMP.ChunkSize)
	}
	if cfg.RTMP.WindowAckSize != 5000000 {
		t.Errorf("expected window_ack_size 5000000, got %d", cfg.RTMP.WindowAckSize)
	}
	if cfg.Bus.SubscriberBuffer != 512 {
		t.Errorf("expected subscriber_buffer 512, got %d", cfg.Bus.SubscriberBuffer)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
	if len(cfg.Relays) != 1 {
		t.Fatalf("expected 1 relay, got %d", len(cfg.Relays))
	}
	relay := cfg.Relays[0]
	if relay.App != "live" || relay.Name != "main" || relay.Mode != "push" {
		t.Errorf("unexpected relay: %+v", relay)
	}
	if !relay.Reconnect {
		t.Error("expected reconnect to be true")
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  rtmp_port: 1935\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Server.HTTPPort != 8081 {
		t.Errorf("expected default http_port 8081, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.HealthPort != 8080 {
		t.Errorf("expected default health_port 8080, got %d", cfg.Server.HealthPort)
	}
	if cfg.RTMP.ChunkSize != 4096 {
		t.Errorf("expected default chunk_size 4096, got %d", cfg.RTMP.ChunkSize)
	}
	if cfg.RTMP.WindowAckSize != 2500000 {
		t.Errorf("expected default window_ack_size 2500000, got %d", cfg.RTMP.WindowAckSize)
	}
	if cfg.Bus.SubscriberBuffer != 1024 {
		t.Errorf("expected default subscriber_buffer 1024, got %d", cfg.Bus.SubscriberBuffer)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("unexpected default log config: %+v", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("server:\n  rtmp_port: 1935\n  tcp_port: 9000\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "tcp_port") {
		t.Errorf("expected error to name the unknown field, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weir.yaml")
	data := []byte("server:\n  rtmp_port: 2935\nlog:\n  level: warn\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.RTMPPort != 2935 {
		t.Errorf("expected rtmp_port 2935, got %d", cfg.Server.RTMPPort)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected level warn, got %q", cfg.Log.Level)
	}
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "rtmp port out of range",
			mutate: func(c *Config) { c.Server.RTMPPort = 70000 },
			want:   "rtmp_port",
		},
		{
			name:   "http port zero",
			mutate: func(c *Config) { c.Server.HTTPPort = 0 },
			want:   "http_port",
		},
		{
			name: "duplicate ports",
			mutate: func(c *Config) {
				c.Server.HTTPPort = 9000
				c.Server.HealthPort = 9000
			},
			want: "must be different",
		},
		{
			name:   "chunk size too large",
			mutate: func(c *Config) { c.RTMP.ChunkSize = maxChunkSize + 1 },
			want:   "chunk_size",
		},
		{
			name:   "window ack size zero",
			mutate: func(c *Config) { c.RTMP.WindowAckSize = 0 },
			want:   "window_ack_size",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Log.Level = "loud" },
			want:   "level",
		},
		{
			name:   "bad log format",
			mutate: func(c *Config) { c.Log.Format = "xml" },
			want:   "format",
		},
		{
			name:   "subscriber buffer zero",
			mutate: func(c *Config) { c.Bus.SubscriberBuffer = 0 },
			want:   "subscriber_buffer",
		},
		{
			name: "relay missing app",
			mutate: func(c *Config) {
				c.Relays = []RelayConfig{{Name: "main", Mode: "pull", RemoteURL: "rtmp://x/live/main"}}
			},
			want: "app",
		},
		{
			name: "relay bad mode",
			mutate: func(c *Config) {
				c.Relays = []RelayConfig{{App: "live", Name: "main", Mode: "sideways", RemoteURL: "rtmp://x/live/main"}}
			},
			want: "mode",
		},
		{
			name: "relay missing url",
			mutate: func(c *Config) {
				c.Relays = []RelayConfig{{App: "live", Name: "main", Mode: "pull"}}
			},
			want: "remote_url",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}
